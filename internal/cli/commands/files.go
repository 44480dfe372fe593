package commands

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spcai/labcms/internal/cli/output"
	"github.com/spcai/labcms/internal/filetree"
	"github.com/spcai/labcms/pkg/core"
	"github.com/spf13/cobra"
)

// NewFilesCommand creates the files command and its subcommands.
func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage objects in the storage bucket",
		Long: `List, upload and delete the objects of the configured storage bucket.

Paths are relative to the bucket root and use forward slashes.`,
	}

	cmd.AddCommand(newFilesListCommand())
	cmd.AddCommand(newFilesUploadCommand())
	cmd.AddCommand(newFilesMkdirCommand())
	cmd.AddCommand(newFilesRemoveCommand())

	return cmd
}

func newFilesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls [prefix]",
		Aliases: []string{"list"},
		Short:   "List the children of a folder",
		Example: `  # List the bucket root
  labcms files ls

  # List faculty images as JSON
  labcms files ls faculty -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return runFilesList(cmd, prefix)
		},
	}
}

func runFilesList(cmd *cobra.Command, prefix string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if prefix, err = core.CleanPrefix(prefix); err != nil {
		return err
	}
	blobs := cc.Platform.Blobs
	entries, err := blobs.List(cmd.Context(), prefix, core.DefaultListOptions())
	if err != nil {
		return err
	}

	result := output.FilesOutput{Bucket: blobs.Bucket(), Prefix: prefix, Objects: []output.ObjectInfo{}}
	for _, e := range entries {
		info := output.ObjectInfo{
			Name:   e.Name,
			Path:   core.JoinObjectPath(prefix, e.Name),
			Folder: !e.IsFile(),
		}
		if e.IsFile() {
			updated := e.Metadata.UpdatedAt
			info.MimeType = e.Metadata.MimeType
			info.Size = e.Metadata.Size
			info.UpdatedAt = &updated
			info.PublicURL = blobs.PublicURL(info.Path)
		}
		result.Objects = append(result.Objects, info)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(result)
	}

	title := result.Bucket + "/" + prefix
	headers := []string{"Name", "Type", "Size", "Updated"}
	rows := make([][]string, 0, len(result.Objects))
	for _, o := range result.Objects {
		if o.Folder {
			rows = append(rows, []string{o.Name + "/", "folder", "", ""})
			continue
		}
		rows = append(rows, []string{o.Name, o.MimeType, strconv.FormatInt(o.Size, 10), o.UpdatedAt.Format("2006-01-02 15:04")})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, title))
		r.Println("")
		if len(rows) == 0 {
			r.Println("Empty folder")
			return nil
		}
		r.Table(headers, rows)
		return nil
	}

	r.Header(1, title)
	if len(rows) == 0 {
		r.Muted("Empty folder")
		return nil
	}
	r.Table(headers, rows)
	return nil
}

func newFilesUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local-file> [folder]",
		Short: "Upload a local file into a folder",
		Example: `  # Upload into the bucket root
  labcms files upload ./cv.pdf

  # Upload into a folder
  labcms files upload ./ada.png faculty`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 2 {
				folder = args[1]
			}
			return runFilesUpload(cmd, args[0], folder)
		},
	}
}

func runFilesUpload(cmd *cobra.Command, local, folder string) error {
	data, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", local, err)
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	browser := filetree.NewBrowser(cc.Platform.Blobs, cc.Logger)
	stored, err := browser.Upload(cmd.Context(), strings.Trim(folder, "/"), filepath.Base(local), data)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]string{
			"path":       stored,
			"public_url": cc.Platform.Blobs.PublicURL(stored),
		})
	}
	r.Success("Uploaded " + stored)
	r.Muted(cc.Platform.Blobs.PublicURL(stored))
	return nil
}

func newFilesMkdirCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <folder>",
		Short: "Create an empty folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			folder := strings.Trim(args[0], "/")
			parent, name := path.Split(folder)
			browser := filetree.NewBrowser(cc.Platform.Blobs, cc.Logger)
			created, err := browser.CreateFolder(cmd.Context(), strings.Trim(parent, "/"), name)
			if err != nil {
				return err
			}
			cc.Renderer.Success("Created folder " + created)
			return nil
		},
	}
}

func newFilesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file, or a folder with everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			browser := filetree.NewBrowser(cc.Platform.Blobs, cc.Logger)
			n, err := browser.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]int{"deleted": n})
			}
			r.Success(fmt.Sprintf("Deleted %d %s", n, plural(n, "file", "files")))
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
