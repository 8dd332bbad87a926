package requests

import (
	"github.com/foomo/funnelstore/pkg/snapshot"
)

// Action names one operation of the data endpoint
type Action string

const (
	// ActionEmbed public read of the current document
	ActionEmbed Action = "embed"
	// ActionCurrent authenticated read of the current document, sent as no action at all
	ActionCurrent Action = ""
	// ActionBackups list backups
	ActionBackups Action = "backups"
	// ActionRestore read a single backup
	ActionRestore Action = "restore"
	// ActionSave replace the current document, keeping a backup
	ActionSave Action = "save"
	// ActionImport replace the current document without a backup
	ActionImport Action = "import"
)

// Write - body of a save or import
type Write struct {
	Action Action            `json:"action"`
	Data   snapshot.Document `json:"data"`
}
