package iris

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/tu-usuario/iris-1099/internal/domain"
	"github.com/tu-usuario/iris-1099/pkg/config"
	"github.com/tu-usuario/iris-1099/pkg/logger"
)

// submitTimeout tiempo máximo de envío/consulta. Mayor que el de
// autenticación: el intake del IRS puede tardar en procesar la transmisión.
const submitTimeout = 120 * time.Second

// Client envía transmisiones al IRS IRIS A2A y consulta su estado y
// confirmación. Todas las llamadas son síncronas y sin reintentos: el
// llamador es dueño de la política de reintento, porque reenviar un lote ya
// aceptado duplicaría formularios ante el IRS.
// Nunca registra en logs cuerpos de petición o respuesta: contienen PII.
type Client struct {
	cfg        *config.Config
	log        *logger.Logger
	auth       *Authenticator
	httpClient *http.Client
}

// NewClient construye el cliente y su autenticador.
func NewClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}

	auth, err := NewAuthenticator(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		log:        log,
		auth:       auth,
		httpClient: &http.Client{Timeout: submitTimeout},
	}, nil
}

// TestConnection fuerza un refresco de token; éxito implica conectividad y
// credenciales válidas.
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	c.log.Info().Str("environment", c.cfg.Environment).Msg("probando conexión con IRIS")
	return c.auth.TestAuthentication(ctx)
}

// doXML ejecuta un POST autenticado con cuerpo XML y devuelve la respuesta.
func (c *Client) doXML(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	token, err := c.auth.GetAccessToken(ctx, false)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	req.Header.Set("Authorization", token.TokenType+" "+token.Token)
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fallo de red: %v", domain.ErrSubmissionFailed, err)
	}
	return resp, nil
}

// SubmitXML envía la transmisión al endpoint de intake. Si transmissionID es
// vacío se extrae del propio documento. La respuesta 2xx se interpreta como
// SubmissionResult; si el cuerpo no es interpretable se devuelve un resultado
// degradado con estado UNKNOWN en lugar de descartar el receipt ya obtenido.
func (c *Client) SubmitXML(ctx context.Context, xmlContent []byte, transmissionID string) (*SubmissionResult, error) {
	if transmissionID == "" {
		transmissionID = extractTransmissionID(xmlContent)
	}

	c.log.Info().
		Str("transmission_id", transmissionID).
		Int("bytes", len(xmlContent)).
		Msg("enviando transmisión a IRIS")

	resp, err := c.doXML(ctx, c.cfg.SubmitEndpoint, xmlContent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	c.log.Debug().Int("status", resp.StatusCode).Msg("respuesta del intake recibida")

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		result := parseSubmissionResponse(body)
		if result.UniqueTransmissionID == "" {
			result.UniqueTransmissionID = transmissionID
		}
		return result, nil

	case http.StatusBadRequest:
		// 400: transmisión malformada; debe regenerarse, no reenviarse.
		msg := extractErrorMessage(body)
		if msg == "" {
			msg = "el IRS rechazó la transmisión sin detalle"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrTransmissionRejected, msg)

	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: HTTP 401 del intake", domain.ErrTokenExpired)

	case http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP 403 del intake", domain.ErrForbidden)

	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: HTTP 503 del intake", domain.ErrServiceUnavailable)

	default:
		// El cuerpo no se incluye: puede traer PII o detalle sensible.
		return nil, fmt.Errorf("%w: el intake respondió HTTP %d", domain.ErrSubmissionFailed, resp.StatusCode)
	}
}

// GetStatus consulta el estado de una transmisión por receipt id o, en su
// defecto, por UTID.
func (c *Client) GetStatus(ctx context.Context, receiptID, transmissionID string) (*SubmissionResult, error) {
	reqXML, err := buildStatusOrAckRequest(receiptID, transmissionID, "STATUS")
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("receipt_id", receiptID).Msg("consultando estado de transmisión")

	resp, err := c.doXML(ctx, c.cfg.StatusEndpoint, reqXML)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		result := parseSubmissionResponse(body)
		if result.ReceiptID == "" {
			result.ReceiptID = receiptID
		}
		if result.UniqueTransmissionID == "" {
			result.UniqueTransmissionID = transmissionID
		}
		return result, nil

	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: receipt %q", domain.ErrNotFound, receiptID)

	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: HTTP 401 al consultar estado", domain.ErrTokenExpired)

	default:
		return nil, fmt.Errorf("%w: la consulta de estado respondió HTTP %d", domain.ErrSubmissionFailed, resp.StatusCode)
	}
}

// GetAcknowledgment recupera la confirmación detallada (ACK) de una
// transmisión ya procesada. Un 202 significa que aún no está lista y el
// llamador debe reintentar más tarde.
func (c *Client) GetAcknowledgment(ctx context.Context, receiptID, transmissionID string) (*AcknowledgmentResult, error) {
	reqXML, err := buildStatusOrAckRequest(receiptID, transmissionID, "ACK")
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("receipt_id", receiptID).Msg("recuperando confirmación de transmisión")

	resp, err := c.doXML(ctx, c.cfg.AckEndpoint, reqXML)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		ack := parseAcknowledgmentResponse(body)
		if ack.ReceiptID == "" {
			ack.ReceiptID = receiptID
		}
		if ack.UniqueTransmissionID == "" {
			ack.UniqueTransmissionID = transmissionID
		}
		return ack, nil

	case http.StatusAccepted:
		return nil, fmt.Errorf("%w: receipt %q sigue en proceso", domain.ErrAckNotReady, receiptID)

	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: receipt %q", domain.ErrNotFound, receiptID)

	default:
		return nil, fmt.Errorf("%w: la consulta de confirmación respondió HTTP %d", domain.ErrSubmissionFailed, resp.StatusCode)
	}
}

// ── Construcción y parsing de XML de consulta/respuesta ───────────────────

// buildStatusOrAckRequest arma el XML de consulta: ReceiptId tiene prioridad
// sobre UniqueTransmissionId; alguno de los dos es obligatorio.
func buildStatusOrAckRequest(receiptID, transmissionID, requestType string) ([]byte, error) {
	if receiptID == "" && transmissionID == "" {
		return nil, fmt.Errorf("%w: se requiere receipt id o transmission id", domain.ErrSubmissionFailed)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("StatusOrAckRequest")
	root.CreateAttr("xmlns", "urn:us:gov:treasury:irs:ir")

	if receiptID != "" {
		addElem(root, "ReceiptId", receiptID)
	} else {
		addElem(root, "UniqueTransmissionId", transmissionID)
	}
	addElem(root, "RequestTypeCd", requestType)

	doc.IndentTabs()
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	return out, nil
}

// extractTransmissionID saca el UniqueTransmissionId del documento a enviar;
// vacío si el documento no lo trae o no parsea.
func extractTransmissionID(xmlContent []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlContent); err != nil {
		return ""
	}
	root := doc.Root()
	if root == nil {
		return ""
	}
	if elems := descendantsByTag(root, "UniqueTransmissionId"); len(elems) > 0 {
		return elems[0].Text()
	}
	return ""
}

// degradedResult resultado UNKNOWN para respuestas 2xx no interpretables.
func degradedResult(reason string) *SubmissionResult {
	return &SubmissionResult{
		Status:   StatusUnknown,
		Message:  "respuesta del IRS no interpretable: " + reason,
		Degraded: true,
	}
}

func textOf(root *etree.Element, tag string) string {
	if elems := descendantsByTag(root, tag); len(elems) > 0 {
		return elems[0].Text()
	}
	return ""
}

func intOf(root *etree.Element, tag string) int {
	n, _ := strconv.Atoi(textOf(root, tag))
	return n
}

// firstStatusText busca el código de estado bajo cualquiera de los nombres
// que IRIS usa según el tipo de respuesta.
func firstStatusText(root *etree.Element) string {
	for _, tag := range []string{"TransmissionStatusCd", "SubmissionStatusCd", "StatusCd"} {
		if text := textOf(root, tag); text != "" {
			return text
		}
	}
	return ""
}

// parseFormErrors lee los grupos de detalle de error de un elemento.
func parseFormErrors(root *etree.Element) []FormError {
	var out []FormError
	for _, grp := range descendantsByTag(root, "ErrorDetailGrp") {
		out = append(out, FormError{
			RecordID:  textOf(grp, "RecordId"),
			ErrorCode: textOf(grp, "ErrorMessageCd"),
			Message:   textOf(grp, "ErrorMessageTxt"),
			Field:     textOf(grp, "FieldNm"),
		})
	}
	return out
}

// parseSubmissionResponse interpreta la respuesta de intake/estado. Nunca
// falla: un cuerpo no interpretable produce un resultado degradado.
func parseSubmissionResponse(body []byte) *SubmissionResult {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return degradedResult(err.Error())
	}
	root := doc.Root()
	if root == nil {
		return degradedResult("documento vacío")
	}

	return &SubmissionResult{
		ReceiptID:            textOf(root, "ReceiptId"),
		UniqueTransmissionID: textOf(root, "UniqueTransmissionId"),
		Status:               ParseSubmissionStatus(firstStatusText(root)),
		Message:              textOf(root, "StatusMessageTxt"),
		RecordCount:          intOf(root, "TotalRecordCnt"),
		AcceptedCount:        intOf(root, "AcceptedRecordCnt"),
		RejectedCount:        intOf(root, "RejectedRecordCnt"),
		WarningCount:         intOf(root, "WarningCnt"),
		Errors:               parseFormErrors(root),
	}
}

// parseAcknowledgmentResponse interpreta la confirmación detallada con sus
// resultados por formulario. Igual que el intake, degrada en vez de fallar.
func parseAcknowledgmentResponse(body []byte) *AcknowledgmentResult {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return &AcknowledgmentResult{
			Status:   StatusUnknown,
			Message:  "confirmación no interpretable: " + err.Error(),
			Degraded: true,
		}
	}
	root := doc.Root()
	if root == nil {
		return &AcknowledgmentResult{
			Status:   StatusUnknown,
			Message:  "confirmación vacía",
			Degraded: true,
		}
	}

	ack := &AcknowledgmentResult{
		ReceiptID:            textOf(root, "ReceiptId"),
		UniqueTransmissionID: textOf(root, "UniqueTransmissionId"),
		Status:               ParseSubmissionStatus(firstStatusText(root)),
		Message:              textOf(root, "StatusMessageTxt"),
	}

	for _, grp := range descendantsByTag(root, "SubmissionAckGrp") {
		ack.FormResults = append(ack.FormResults, FormResult{
			RecordID: textOf(grp, "RecordId"),
			Status:   ParseSubmissionStatus(textOf(grp, "RecordStatusCd")),
			Errors:   parseFormErrors(grp),
		})
	}

	// Errores a nivel de transmisión: los que no cuelgan de ningún
	// resultado por formulario.
	for _, grp := range childrenByTag(root, "ErrorDetailGrp") {
		ack.TransmissionErrors = append(ack.TransmissionErrors, FormError{
			RecordID:  textOf(grp, "RecordId"),
			ErrorCode: textOf(grp, "ErrorMessageCd"),
			Message:   textOf(grp, "ErrorMessageTxt"),
			Field:     textOf(grp, "FieldNm"),
		})
	}

	return ack
}

// extractErrorMessage saca el ErrorMessageTxt de un cuerpo de rechazo 400;
// vacío si el cuerpo no parsea o no trae detalle.
func extractErrorMessage(body []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return ""
	}
	root := doc.Root()
	if root == nil {
		return ""
	}
	return textOf(root, "ErrorMessageTxt")
}
