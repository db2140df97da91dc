package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// DocumentKey is the object key for a contract's uploaded file.
func DocumentKey(contractID int64, filename string) string {
	return path.Join("contracts", strconv.FormatInt(contractID, 10), filepath.Base(filename))
}

func newDocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Manage contract documents in object storage",
	}
	cmd.AddCommand(newDocumentUploadCmd())
	return cmd
}

func newDocumentUploadCmd() *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "upload <contract-id> <file>",
		Short: "Upload a file as a contract's document",
		Long: `Upload a file to the document bucket under contracts/<id>/<filename>.
Set the printed key as the contract's mainDocument to make it downloadable.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return errors.InvalidParam("contract-id must be a positive integer")
			}
			f, err := os.Open(args[1])
			if err != nil {
				return errors.InvalidParam(fmt.Sprintf("cannot open %s: %v", args[1], err))
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(args[1]))
			}

			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := cliCtx.Config()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			rt, err := cliCtx.Backend.Open(ctx, cfg, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.Documents == nil {
				return errors.New(errors.ErrCodeFeatureDisabled, "document storage is not configured")
			}

			res, err := rt.Documents.Upload(ctx, DocumentKey(id, args[1]), f, info.Size(), contentType)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return renderTable(cmd.OutOrStdout(), []string{"Key", "Size", "ETag"},
				[][]string{{res.ObjectKey, strconv.FormatInt(res.Size, 10), res.ETag}})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (guessed from the extension by default)")
	return cmd
}

//Personal.AI order the ending
