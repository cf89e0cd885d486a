package model

import "time"

// Resource types accepted by the upload endpoint.
const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourcePDF   = "pdf"
)

// Resource is a shareable binary asset (image, video or PDF) stored in the
// gateway's object storage. The record row carries metadata only; the bytes
// live under StoragePath and are served through short-lived signed URLs.
//
// Fields:
//  ID          – record identifier.
//  Title       – display title.
//  Type        – one of image/video/pdf.
//  StoragePath – object key inside the storage bucket.
//  CreatedBy   – subject id of the uploader.
//  CreatedAt   – timestamp of creation.
//  IsFavorite  – derived per-caller flag.
//  URL         – signed download URL, filled in at read time.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	StoragePath string    `json:"storage_path"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	IsFavorite  bool      `json:"is_favorite"`
	URL         string    `json:"url,omitempty"`
}

// ValidResourceType reports whether t is an accepted resource type.
func ValidResourceType(t string) bool {
	return t == ResourceImage || t == ResourceVideo || t == ResourcePDF
}
