// Package process implements the process command, which records the
// transactions found in one message.
package process

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fjacquet/spendlog/cmd/root"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
)

var (
	imagePath string
	audioPath string
	caption   string
)

// Cmd is the process command
var Cmd = &cobra.Command{
	Use:   "process [text...]",
	Short: "Extract and save the transactions described in a message",
	Long: `Send a text message, a receipt photo or a voice note to the active backend
and save every transaction it finds. Examples:

  spendlog process "spent 250 on lunch"
  spendlog process --image receipt.jpg --caption "team dinner"
  spendlog process --audio note.ogg`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringVar(&imagePath, "image", "", "Receipt photo to process")
	Cmd.Flags().StringVar(&audioPath, "audio", "", "Voice note to process")
	Cmd.Flags().StringVar(&caption, "caption", "", "Text sent along with the image or voice note")
	Cmd.MarkFlagsMutuallyExclusive("image", "audio")
}

func run(cmd *cobra.Command, args []string) error {
	kind, payload, err := buildPayload(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := root.GetContainer(ctx)
	if err != nil {
		return err
	}
	proc := c.GetProcessor()
	tenant := root.SharedFlags.Tenant

	if _, err := proc.InitializeTenant(ctx, tenant); err != nil {
		return fmt.Errorf("failed to initialize categories for %s: %w", tenant, err)
	}

	outcomes := proc.ProcessInput(ctx, tenant, root.SharedFlags.Actor, kind, payload)
	saved := 0
	for _, o := range outcomes {
		if o.IsSuccess() {
			saved++
		} else if o.Err != nil {
			root.Log.WithError(o.Err).Debug("Message not recorded",
				logging.F(logging.FieldOutcome, o.Kind.String()))
		}
		fmt.Fprintln(cmd.OutOrStdout(), o.UserMessage())
	}
	if saved == 0 {
		return fmt.Errorf("no transaction recorded")
	}
	return nil
}

// buildPayload maps the command line onto one inbound message.
func buildPayload(args []string) (models.InputKind, models.Payload, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	switch {
	case imagePath != "":
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return "", models.Payload{}, fmt.Errorf("error reading image: %w", err)
		}
		return models.InputImage, models.Payload{
			Image:    data,
			MIMEType: imageMIMEType(imagePath, data),
			Caption:  firstNonEmpty(caption, text),
		}, nil
	case audioPath != "":
		if _, err := os.Stat(audioPath); err != nil {
			return "", models.Payload{}, fmt.Errorf("error reading voice note: %w", err)
		}
		return models.InputAudio, models.Payload{
			AudioPath: audioPath,
			Caption:   firstNonEmpty(caption, text),
		}, nil
	case text != "":
		return models.InputText, models.Payload{Text: text}, nil
	default:
		return "", models.Payload{}, fmt.Errorf("nothing to process: pass text, --image or --audio")
	}
}

func imageMIMEType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(t, "image/") {
		return t
	}
	return http.DetectContentType(data)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
