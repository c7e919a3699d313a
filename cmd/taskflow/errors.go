package main

import "fmt"

// NoChangesError indicates update was called without any field flags.
type NoChangesError struct{}

func (e NoChangesError) Error() string {
	return "nothing to update: pass at least one of --title, --description, --priority, --category, --due"
}

// TemplateNotFoundError indicates an unknown --template id.
type TemplateNotFoundError struct {
	ID string
}

func (e TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s (see 'taskflow templates')", e.ID)
}
