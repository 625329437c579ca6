package models

import "time"

// DocumentStatus represents the review state of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// DocumentType names the documents students are expected to provide.
// Mandatory types feed the enrollment activation guard.
type DocumentType string

const (
	DocumentTypeIdentity     DocumentType = "IDENTITY"
	DocumentTypeCPF          DocumentType = "CPF"
	DocumentTypeProofAddress DocumentType = "PROOF_OF_ADDRESS"
	DocumentTypeSchoolRecord DocumentType = "SCHOOL_RECORD"
	DocumentTypePhoto        DocumentType = "PHOTO"
)

// MandatoryDocumentTypes lists the types required before activation when the
// document approval guard is enabled.
var MandatoryDocumentTypes = []DocumentType{
	DocumentTypeIdentity,
	DocumentTypeCPF,
	DocumentTypeProofAddress,
	DocumentTypeSchoolRecord,
}

// Document represents a file uploaded by a student for review.
type Document struct {
	ID         string         `db:"id" json:"id"`
	StudentID  string         `db:"student_id" json:"student_id"`
	Type       DocumentType   `db:"type" json:"type"`
	FilePath   string         `db:"file_path" json:"file_path"`
	FileName   string         `db:"file_name" json:"file_name"`
	MIMEType   string         `db:"mime_type" json:"mime_type"`
	SizeBytes  int64          `db:"size_bytes" json:"size_bytes"`
	Status     DocumentStatus `db:"status" json:"status"`
	ReviewedBy *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Note       *string        `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// DocumentFilter provides filters for listing documents.
type DocumentFilter struct {
	StudentID string
	Status    DocumentStatus
	Type      DocumentType
	Page      int
	PageSize  int
}
