package session

import "errors"

var (
	ErrNotFound           = errors.New("session not found")
	ErrUnreadableDocument = errors.New("unable to properly review the document")
	ErrNotReady           = errors.New("no document has been reviewed yet")
	ErrEmptyQuestion      = errors.New("please enter a question before asking the doctor")
	ErrNoTreatment        = errors.New("no treatment plan available")
	ErrAudioNotFound      = errors.New("audio file not found")
)
