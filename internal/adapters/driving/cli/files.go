package cli

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage uploaded files",
	Long:  `Upload, list, preview or delete the files of a knowledge base.`,
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload [path...]",
	Short: "Upload files to the knowledge base",
	Long: `Stores each file and registers it as a document. Uploading a file whose
name is already present replaces the earlier document. Run "astraqa build"
afterwards to make the content retrievable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFilesUpload,
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	Args:  cobra.NoArgs,
	RunE:  runFilesList,
}

var filesPreviewCmd = &cobra.Command{
	Use:   "preview [file-id]",
	Short: "Print the beginning of a text file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesPreview,
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete [file-id]",
	Short: "Delete a file and its indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesDelete,
}

// uploadMIMEType overrides content type detection for upload.
var uploadMIMEType string

func init() {
	filesUploadCmd.Flags().StringVar(&uploadMIMEType, "mime", "", "content type (default: detected from extension)")

	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesPreviewCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	rootCmd.AddCommand(filesCmd)
}

func runFilesUpload(cmd *cobra.Command, args []string) error {
	if knowledgeBaseService == nil {
		return errors.New("knowledge base service not configured")
	}

	userID := currentUser()
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc, err := knowledgeBaseService.Upload(cmd.Context(), userID, driving.UploadRequest{
			Filename: filepath.Base(path),
			MIMEType: detectMIMEType(path, data),
			Content:  data,
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", path, err)
		}
		cmd.Printf("Uploaded %s (%s, %d bytes) as %s\n", doc.Filename, doc.MIMEType, doc.Size, doc.ID)
	}
	return nil
}

// detectMIMEType prefers the --mime flag, then the extension, then
// content sniffing.
func detectMIMEType(path string, data []byte) string {
	if uploadMIMEType != "" {
		return uploadMIMEType
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	if knowledgeBaseService == nil {
		return errors.New("knowledge base service not configured")
	}

	state, err := knowledgeBaseService.State(cmd.Context(), currentUser())
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(state.Documents) == 0 {
		cmd.Println("No files uploaded.")
		return nil
	}

	for i := range state.Documents {
		d := state.Documents[i]
		cmd.Printf("  %s\n", d.ID)
		cmd.Printf("    Name: %s\n", d.Filename)
		cmd.Printf("    Type: %s\n", d.MIMEType)
		cmd.Printf("    Size: %d bytes\n", d.Size)
		cmd.Println()
	}

	cmd.Printf("Total: %d files\n", len(state.Documents))
	return nil
}

func runFilesPreview(cmd *cobra.Command, args []string) error {
	if knowledgeBaseService == nil {
		return errors.New("knowledge base service not configured")
	}

	preview, err := knowledgeBaseService.Preview(cmd.Context(), currentUser(), args[0])
	if err != nil {
		return fmt.Errorf("failed to preview file: %w", err)
	}

	cmd.Printf("%s (%s)\n", preview.Document.Filename, preview.Document.MIMEType)
	cmd.Println()
	if preview.Text == nil {
		cmd.Println(preview.Message)
		return nil
	}
	cmd.Println(*preview.Text)
	return nil
}

func runFilesDelete(cmd *cobra.Command, args []string) error {
	if knowledgeBaseService == nil {
		return errors.New("knowledge base service not configured")
	}

	if err := knowledgeBaseService.DeleteDocument(cmd.Context(), currentUser(), args[0]); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	cmd.Printf("Deleted file: %s\n", args[0])
	return nil
}
