// ABOUTME: Project registry entries and model status types
// ABOUTME: A project owns one analytical database file
package models

import "time"

// Project is an entry in the project registry
type Project struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description" yaml:"description"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updated_at"`
	DatabaseFile string    `json:"databaseFile" yaml:"database_file"`
}

// ModelInfo describes an installed model
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ModelStatus reports whether the inference server is reachable
type ModelStatus struct {
	Connected bool   `json:"connected"`
	Version   string `json:"version,omitempty"`
}
