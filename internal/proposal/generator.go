// Package proposal derives the printable project proposal from a student
// profile and their wishlist.
package proposal

import (
	"errors"
	"strings"
	"time"

	"github.com/terra-clan/projecthub/internal/models"
)

// ErrEmptySelection is returned when generating from an empty wishlist
var ErrEmptySelection = errors.New("please select at least one topic to generate a proposal")

// Placeholders used for missing profile fields
const (
	PlaceholderName       = "Student Name"
	PlaceholderStudentID  = "STU001"
	PlaceholderDepartment = "Computer Science"
	PlaceholderEmail      = "student@university.edu"
	NoTechnologies        = "Not specified"
)

// Document labels
const (
	Title             = "PROJECT PROPOSAL"
	Subtitle          = "For Final Year Project Submission"
	StudentHeading    = "STUDENT INFORMATION"
	TopicsHeading     = "PROPOSED PROJECT TOPICS"
	LabelName         = "Full Name:"
	LabelStudentID    = "Registration Number:"
	LabelDepartment   = "Department:"
	LabelEmail        = "Email:"
	LabelDescription  = "Description:"
	LabelTechnology   = "Technologies:"
	StudentCaption    = "Student's Signature"
	SupervisorCaption = "Supervisor's Signature"
	BlankDate         = "_______________"
	SignatureLine     = "_________________________"
)

// DateLayout formats the signature date, e.g. "March 4, 2026"
const DateLayout = "January 2, 2006"

// Generate builds the proposal document. It depends only on its arguments.
func Generate(profile models.UserProfile, topics []models.Topic, asOf time.Time) (*models.ProposalDocument, error) {
	if len(topics) == 0 {
		return nil, ErrEmptySelection
	}

	date := asOf.Format(DateLayout)

	doc := &models.ProposalDocument{
		Title:    Title,
		Subtitle: Subtitle,
		Student: []models.InfoRow{
			{Label: LabelName, Value: orDefault(profile.Name, PlaceholderName)},
			{Label: LabelStudentID, Value: orDefault(profile.StudentID, PlaceholderStudentID)},
			{Label: LabelDepartment, Value: orDefault(profile.Department, PlaceholderDepartment)},
			{Label: LabelEmail, Value: orDefault(profile.Email, PlaceholderEmail)},
		},
		Topics: make([]models.ProposalEntry, 0, len(topics)),
		Signatures: [2]models.SignatureBlock{
			{Caption: StudentCaption, Date: date},
			{Caption: SupervisorCaption, Date: BlankDate},
		},
		GeneratedOn: date,
	}

	for i, t := range topics {
		tech := NoTechnologies
		if len(t.Technologies) > 0 {
			tech = strings.Join(t.Technologies, ", ")
		}
		doc.Topics = append(doc.Topics, models.ProposalEntry{
			Number:       i + 1,
			TopicID:      t.ID,
			Title:        t.Title,
			Description:  t.Description,
			Technologies: tech,
		})
	}

	return doc, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
