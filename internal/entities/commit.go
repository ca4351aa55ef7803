package entities

import "time"

// Commit is a revision with its metadata.
type Commit struct {
	Hash      Hash
	Parents   []Hash
	Author    Ident
	Committer Ident
	Committed time.Time
	Message   string
	WebURL    string
}

// Branch is a named pointer to a revision.
type Branch struct {
	Name string
	Hash Hash
}

// FileStatus is a single working-copy status letter.
type FileStatus string

const (
	FileAdded    FileStatus = "A"
	FileModified FileStatus = "M"
	FileDeleted  FileStatus = "D"
	FileRenamed  FileStatus = "R"
	FileCopied   FileStatus = "C"
	FileUnmerged FileStatus = "U"
)

// FileState is one entry of the working-copy status. SourcePath is the
// pre-image path, TargetPath the post-image path; either may be empty.
type FileState struct {
	Status     FileStatus
	SourcePath string
	TargetPath string
}

// IsUnmerged reports whether the entry is part of an unresolved conflict.
func (f FileState) IsUnmerged() bool { return f.Status == FileUnmerged }

// Path prefers the post-image path and falls back to the pre-image path
// when the file no longer exists.
func (f FileState) Path() string {
	if f.TargetPath != "" {
		return f.TargetPath
	}
	return f.SourcePath
}
