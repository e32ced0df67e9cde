package models

// ConversionResult is the outcome of converting one Part.
// Produced by the orchestrator, consumed and deleted by the assembler.
type ConversionResult struct {
	Part       Part
	OutputPath string
	Succeeded  bool
}

// RemoteHandle identifies a document uploaded to the OCR service.
type RemoteHandle struct {
	ID   string
	Name string
}
