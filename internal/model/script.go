package model

import "time"

// Script is an outreach message template. Admin-published scripts
// (IsAdmin=true) are visible to every approved user; personal scripts are
// visible only to their creator. The body may contain name placeholders
// that are substituted before hand-off to a composer.
//
// Fields:
//  ID         – record identifier.
//  Title      – short label shown in lists.
//  Body       – template text, may contain placeholders such as {{name}}.
//  Category   – optional grouping label.
//  Tags       – optional free-form tags.
//  IsAdmin    – whether the script is published by an administrator.
//  CreatedBy  – subject id of the creator.
//  CreatedAt  – timestamp of creation.
//  IsFavorite – derived per-caller flag, not a stored column.
type Script struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	IsFavorite bool      `json:"is_favorite"`
}

// ScriptUpdate carries the mutable fields of a script. Nil pointers mean
// "leave unchanged".
type ScriptUpdate struct {
	Title    *string   `json:"title,omitempty"`
	Body     *string   `json:"body,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}
