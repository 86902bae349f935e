package service

import "github.com/google/uuid"

// IDGenerator produces internal record identifiers.
type IDGenerator struct{}

// NewIDGenerator creates an IDGenerator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GenerateID returns a new UUIDv4 in string form.
func (g *IDGenerator) GenerateID() string {
	return uuid.New().String()
}
