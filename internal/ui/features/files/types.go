// Package files provides the object browser page.
package files

// maxUploadBytes bounds the multipart body of the upload form.
const maxUploadBytes = 32 << 20

// FileSignals are the datastar signals of the file browser page.
type FileSignals struct {
	Path        string `json:"path"`
	NewName     string `json:"newName"`
	Destination string `json:"destination"`
	FolderName  string `json:"folderName"`
}

func initialSignals() map[string]any {
	return map[string]any{
		"path":        "",
		"newName":     "",
		"destination": "",
		"folderName":  "",
	}
}
