package domain

import (
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type DocumentType string

const (
	TypePolicy DocumentType = "policy"
	TypeRFP    DocumentType = "rfp"
	TypeSOP    DocumentType = "sop"
)

type Document struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	MimeType     string         `json:"mime_type"`
	StoragePath  string         `json:"storage_path"`
	DocumentType DocumentType   `json:"document_type"`
	AccessLevel  AccessLevel    `json:"access_level"`
	Status       DocumentStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ClassifyDocumentType picks a governance document type from the filename.
// Anything that is not an SOP or a tender/RFP counts as policy.
func ClassifyDocumentType(filename string) DocumentType {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "sop"):
		return TypeSOP
	case strings.Contains(name, "rfp"), strings.Contains(name, "tender"):
		return TypeRFP
	default:
		return TypePolicy
	}
}

// ClassifyAccessLevel tags a document restricted when its filename says so,
// public otherwise.
func ClassifyAccessLevel(filename string) AccessLevel {
	if strings.Contains(strings.ToLower(filename), "restricted") {
		return AccessRestricted
	}
	return AccessPublic
}
