package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tu-usuario/iris-1099/internal/application/efile"
	"github.com/tu-usuario/iris-1099/internal/domain/filing"
	infra "github.com/tu-usuario/iris-1099/internal/infrastructure/iris"
	"github.com/tu-usuario/iris-1099/pkg/config"
	"github.com/tu-usuario/iris-1099/pkg/logger"
)

// batchFile formato del archivo de entrada para generate/submit: el
// transmisor, el emisor y las filas de formularios, todo en un JSON.
type batchFile struct {
	Transmitter filing.TransmitterInfo    `json:"transmitter"`
	Filer       infra.FilerRecord         `json:"filer"`
	FormType    string                    `json:"form_type"`
	TaxYear     int                       `json:"tax_year"`
	IsPriorYear bool                      `json:"is_prior_year"`
	Rows        []infra.FormWithRecipient `json:"rows"`
}

var (
	inputPath  string
	outputPath string
	xmlPath    string
	receiptID  string
	utid       string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "irisctl",
		Short: "Presentación electrónica de formularios 1099/1098 vía IRS IRIS A2A",
		Long: `irisctl genera, valida y envía transmisiones de formularios informativos
(1099-NEC, 1099-MISC, 1099-S, 1098) al IRS por el canal IRIS A2A, y consulta
el estado y la confirmación de transmisiones ya enviadas.

Las credenciales se leen del entorno o de un archivo .env:
IRIS_CLIENT_ID, IRIS_PRIVATE_KEY (o _B64 / _PATH), IRIS_TCC, IRIS_ENVIRONMENT.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "nivel de log: debug, info, warn, error")

	root.AddCommand(testAuthCmd(), generateCmd(), validateCmd(), submitCmd(), statusCmd(), ackCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "development", Level: logLevel})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuración: %w", err)
	}
	return cfg, nil
}

func readBatchFile(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no se pudo leer %s: %w", path, err)
	}
	var bf batchFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("JSON de lote inválido: %w", err)
	}
	return &bf, nil
}

// buildGenerator arma el generador con el transmisor del archivo de lote,
// completando TCC y ambiente desde la configuración.
func buildGenerator(cfg *config.Config, bf *batchFile) *infra.Generator {
	transmitter := bf.Transmitter
	if transmitter.TCC == "" {
		transmitter.TCC = cfg.TCC
	}
	return infra.NewGenerator(infra.GeneratorParams{
		Transmitter: transmitter,
		SoftwareID:  cfg.SoftwareID,
		IsTest:      !cfg.IsProduction(),
		IsPriorYear: bf.IsPriorYear,
	})
}

func testAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-auth",
		Short: "Verifica conectividad y credenciales contra el IRS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := infra.NewClient(cfg, newLogger())
			if err != nil {
				return err
			}
			if _, err := client.TestConnection(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Autenticación exitosa contra %s\n", cfg.Environment)
			return nil
		},
	}
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Genera la transmisión XML a partir de un lote JSON",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			bf, err := readBatchFile(inputPath)
			if err != nil {
				return err
			}

			batch, err := infra.BuildSubmissionBatch(bf.Filer, bf.Rows, bf.TaxYear, bf.FormType)
			if err != nil {
				return err
			}
			if err := filing.ValidateBatch(batch); err != nil {
				return err
			}

			g := buildGenerator(cfg, bf)
			xmlContent, err := g.GenerateBytes([]*filing.SubmissionBatch{batch}, bf.TaxYear, "")
			if err != nil {
				return err
			}

			if err := os.WriteFile(outputPath, xmlContent, 0o600); err != nil {
				return fmt.Errorf("no se pudo escribir %s: %w", outputPath, err)
			}
			fmt.Printf("Transmisión generada: %s (%d formularios)\n", outputPath, len(batch.Forms))
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "archivo JSON del lote (obligatorio)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "transmission.xml", "ruta del XML de salida")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Valida una transmisión XML sin enviarla",
		RunE: func(_ *cobra.Command, _ []string) error {
			xmlContent, err := os.ReadFile(xmlPath)
			if err != nil {
				return fmt.Errorf("no se pudo leer %s: %w", xmlPath, err)
			}

			validator := infra.NewValidator(nil)
			valid, findings := validator.Validate(xmlContent)

			if len(findings) > 0 {
				translator := infra.NewTranslator()
				for _, te := range translator.TranslateErrors(findings) {
					fmt.Printf("[%s] %s: %s\n    Corrección: %s\n", te.Severity, te.Field, te.Message, te.Fix)
				}
			}
			if !valid {
				return fmt.Errorf("la transmisión no pasó la validación (%d hallazgos)", len(findings))
			}
			fmt.Println("Transmisión válida")
			return nil
		},
	}
	cmd.Flags().StringVarP(&xmlPath, "file", "f", "", "transmisión XML a validar (obligatorio)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Genera, valida y envía un lote al IRS",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()
			bf, err := readBatchFile(inputPath)
			if err != nil {
				return err
			}

			batch, err := infra.BuildSubmissionBatch(bf.Filer, bf.Rows, bf.TaxYear, bf.FormType)
			if err != nil {
				return err
			}

			client, err := infra.NewClient(cfg, log)
			if err != nil {
				return err
			}
			uc := efile.NewUseCase(buildGenerator(cfg, bf), infra.NewValidator(nil), client, log)

			prepared, result, err := uc.PrepareAndSubmit(c.Context(), []*filing.SubmissionBatch{batch}, bf.TaxYear)
			if err != nil {
				if prepared != nil && !prepared.Valid {
					for _, te := range prepared.TranslatedErrors {
						fmt.Printf("[%s] %s: %s\n    Corrección: %s\n", te.Severity, te.Field, te.Message, te.Fix)
					}
				}
				return err
			}

			fmt.Printf("Transmisión enviada\n  UTID:    %s\n  Receipt: %s\n  Estado:  %s\n",
				prepared.TransmissionID, result.ReceiptID, result.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "archivo JSON del lote (obligatorio)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Consulta el estado de una transmisión enviada",
		RunE: func(c *cobra.Command, _ []string) error {
			return runQuery(c.Context(), func(ctx context.Context, client *infra.Client) error {
				result, err := client.GetStatus(ctx, receiptID, utid)
				if err != nil {
					return err
				}
				fmt.Printf("Estado: %s\n", result.Status)
				if result.Message != "" {
					fmt.Printf("Mensaje: %s\n", result.Message)
				}
				fmt.Printf("Aceptados %d / Rechazados %d / Total %d\n",
					result.AcceptedCount, result.RejectedCount, result.RecordCount)
				for _, fe := range result.Errors {
					fmt.Printf("  registro %s [%s]: %s\n", fe.RecordID, fe.ErrorCode, fe.Message)
				}
				return nil
			})
		},
	}
	addQueryFlags(cmd)
	return cmd
}

func ackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ack",
		Short: "Recupera la confirmación detallada de una transmisión",
		RunE: func(c *cobra.Command, _ []string) error {
			return runQuery(c.Context(), func(ctx context.Context, client *infra.Client) error {
				ack, err := client.GetAcknowledgment(ctx, receiptID, utid)
				if err != nil {
					return err
				}
				fmt.Printf("Estado: %s\n", ack.Status)
				for _, fr := range ack.FormResults {
					fmt.Printf("  registro %s: %s\n", fr.RecordID, fr.Status)
					for _, fe := range fr.Errors {
						fmt.Printf("    [%s] %s\n", fe.ErrorCode, fe.Message)
					}
				}
				return nil
			})
		},
	}
	addQueryFlags(cmd)
	return cmd
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&receiptID, "receipt", "", "receipt id devuelto por el IRS")
	cmd.Flags().StringVar(&utid, "utid", "", "unique transmission id (alternativa al receipt)")
}

func runQuery(ctx context.Context, fn func(context.Context, *infra.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := infra.NewClient(cfg, newLogger())
	if err != nil {
		return err
	}
	return fn(ctx, client)
}
