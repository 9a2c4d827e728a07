package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"treevut/internal/models"
	"treevut/pkg/config"
	"treevut/pkg/metrics"
	"treevut/pkg/resilience"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var rucPattern = regexp.MustCompile(`^\d{11}$`)

// ExtractionService turns receipt images and voice notes into structured
// expense data through GigaChat. Extraction is best-effort: any model or
// transport failure yields nil data, never a partial expense. Statutory
// fields (formality, IGV, lost savings) are always recomputed locally and
// model output outside the closed enums is coerced at this boundary.
type ExtractionService struct {
	client      *gigago.Client
	model       *gigago.GenerativeModel
	config      *config.GigaChatConfig
	logger      *zap.Logger
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	retryCfg   resilience.Config

	// tokenMu guards accessToken: the 401 refresh path rewrites it while
	// concurrent extraction requests read it.
	tokenMu     sync.Mutex
	accessToken string
}

func (s *ExtractionService) token() string {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	return s.accessToken
}

func (s *ExtractionService) setToken(token string) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	s.accessToken = token
}

func buildExtractionInstruction() string {
	return fmt.Sprintf(`Eres un asistente contable experto en comprobantes de pago peruanos (SUNAT). Tu tarea es extraer información estructurada de boletas, facturas y descripciones de gastos.

Categorías de gasto válidas: %s
Tipos de comprobante válidos: %s

Reglas:
- El RUC es un número de 11 dígitos. Si no se encuentra, deja el campo vacío.
- Las fechas siempre en formato YYYY-MM-DD.
- Un comprobante es formal solo si es electrónico y muestra RUC y razón social claros. Un ticket simple o recibo manual es informal.
- Responde SIEMPRE con JSON válido, sin comentarios ni texto adicional.`,
		joinCategories(), joinReceiptTypes())
}

func joinCategories() string {
	names := make([]string, len(models.AllCategories))
	for i, c := range models.AllCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func joinReceiptTypes() string {
	names := make([]string, len(models.AllReceiptTypes))
	for i, t := range models.AllReceiptTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func NewExtractionService(cfg *config.GigaChatConfig, logger *zap.Logger) (*ExtractionService, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = buildExtractionInstruction()
	model.Temperature = 0.2

	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	accessToken, err := getAccessToken(ctx, cfg, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return &ExtractionService{
		client:      client,
		model:       model,
		config:      cfg,
		logger:      logger,
		httpClient:  httpClient,
		accessToken: accessToken,
		baseURL:     "https://gigachat.devices.sberbank.ru/api/v1",
		cb:          resilience.NewCircuitBreaker("gigachat-extraction"),
		retryCfg:    resilience.Config{MaxRetries: 2, InitialBackoff: 400 * time.Millisecond},
	}, nil
}

// getAccessToken obtains an access token from the GigaChat OAuth endpoint.
// Needed for file uploads and Vision calls outside the SDK surface. The
// API key is expected to be Base64-encoded already.
func getAccessToken(ctx context.Context, cfg *config.GigaChatConfig, httpClient *http.Client, logger *zap.Logger) (string, error) {
	oauthURL := "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

	formData := url.Values{}
	formData.Set("scope", cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, "POST", oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
		)
		return "", fmt.Errorf("OAuth failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	logger.Info("GigaChat access token obtained", zap.Int("expires_in", oauthResp.ExpiresIn))
	return oauthResp.AccessToken, nil
}

// uploadFile pushes a receipt file to the GigaChat Files API and returns
// the file id used by Vision attachments.
func (s *ExtractionService) uploadFile(ctx context.Context, data []byte, fileName string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// "general" purpose allows referencing the file in generation requests.
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		switch ext {
		case ".jpg", ".jpeg":
			mimeType = "image/jpeg"
		case ".png":
			mimeType = "image/png"
		case ".mp3":
			mimeType = "audio/mpeg"
		case ".ogg":
			mimeType = "audio/ogg"
		case ".wav":
			mimeType = "audio/wav"
		default:
			mimeType = "application/octet-stream"
		}
	}

	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {mimeType},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "", fmt.Errorf("file exceeds maximum size limit")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		bodyBytes, _ := io.ReadAll(resp.Body)
		accessToken, refreshErr := getAccessToken(ctx, s.config, s.httpClient, s.logger)
		if refreshErr != nil {
			return "", fmt.Errorf("upload failed with 401, token refresh also failed: %w (original error: %s)", refreshErr, string(bodyBytes))
		}
		s.setToken(accessToken)
		return "", fmt.Errorf("token expired, retry the operation (original error: %s)", string(bodyBytes))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	s.logger.Debug("File uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

// generateWithAttachment runs a Vision-style chat completion with the
// uploaded file attached. Wrapped in the breaker + retry since the model
// endpoint is the flakiest collaborator we have.
func (s *ExtractionService) generateWithAttachment(ctx context.Context, fileID, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model": "GigaChat",
		"messages": []map[string]interface{}{
			{
				"role":        "user",
				"content":     prompt,
				"attachments": [][]string{{fileID}},
			},
		},
		"temperature": 0.2,
		"stream":      false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	_, err = s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.retryCfg, func() error {
			req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(jsonData))
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+s.token())

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to make request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				bodyBytes, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("vision API failed with status %d: %s", resp.StatusCode, string(bodyBytes))
			}

			var visionResp struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			if len(visionResp.Choices) == 0 {
				return fmt.Errorf("no response from Vision API")
			}
			content = strings.TrimSpace(visionResp.Choices[0].Message.Content)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// extractJSON pulls the first JSON value out of a model response that may
// be wrapped in markdown fences or surrounded by commentary.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")

	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		end := strings.LastIndex(content, "]")
		if end > arrStart {
			return content[arrStart : end+1], nil
		}
	}
	if objStart != -1 {
		end := strings.LastIndex(content, "}")
		if end > objStart {
			return content[objStart : end+1], nil
		}
	}
	return "", fmt.Errorf("no JSON value in model response: %s", content)
}

// rawExpense mirrors the shape the model is asked for, before local
// enrichment.
type rawExpense struct {
	MerchantName string   `json:"razon_social"`
	TaxID        string   `json:"ruc"`
	Date         string   `json:"fecha"`
	Total        *float64 `json:"total"`
	Category     string   `json:"categoria"`
	ReceiptType  string   `json:"tipo_comprobante"`
	IsFormal     *bool    `json:"es_formal"`
}

// enrichExpense applies the local statutory rules to raw model output:
// RUC-gated formality, IGV and lost savings are never trusted from the
// model, and enum values outside the closed sets collapse to Other.
func (s *ExtractionService) enrichExpense(raw *rawExpense, defaultMerchant string) *models.ExpenseData {
	if raw == nil || raw.Total == nil {
		return nil
	}

	formalFlag := true
	if raw.IsFormal != nil {
		formalFlag = *raw.IsFormal
	}
	isFormal := rucPattern.MatchString(raw.TaxID) && formalFlag

	category := models.ParseCategory(raw.Category)

	data := &models.ExpenseData{
		MerchantName: raw.MerchantName,
		TaxID:        raw.TaxID,
		Date:         raw.Date,
		Total:        *raw.Total,
		Category:     category,
		ReceiptType:  models.ParseReceiptType(raw.ReceiptType),
		IsFormal:     isFormal,
	}
	if data.MerchantName == "" {
		data.MerchantName = defaultMerchant
	}
	if data.TaxID == "" {
		data.TaxID = "N/A"
	}
	if data.Date == "" {
		data.Date = time.Now().UTC().Format(dateLayout)
	}
	data.ConsumptionTax = ConsumptionTax(data.Total)
	data.LostSavings = LostSavings(data.Total, data.Category, data.IsFormal)
	return data
}

const expensePromptFormat = `%s

Extrae la información del gasto y responde únicamente con este objeto JSON:
{
  "razon_social": "nombre o razón social del negocio",
  "ruc": "RUC de 11 dígitos del negocio, vacío si no se encuentra",
  "fecha": "YYYY-MM-DD",
  "total": importe total en números,
  "categoria": "una de las categorías válidas",
  "tipo_comprobante": "uno de los tipos de comprobante válidos",
  "es_formal": true o false
}`

// ExtractExpenseFromImage analyzes a receipt photo and returns enriched
// expense data, or nil when nothing reliable could be extracted.
func (s *ExtractionService) ExtractExpenseFromImage(ctx context.Context, data []byte, fileName string) (*models.ExpenseData, error) {
	prompt := fmt.Sprintf(expensePromptFormat,
		"Analiza este comprobante de pago peruano. Clasifica el gasto, el tipo de comprobante y determina si es un comprobante formal.")
	result, err := s.extractExpense(ctx, data, fileName, prompt, "Desconocido")
	s.observeExtraction("expense_image", err)
	return result, err
}

// ExtractExpenseFromAudio analyzes a voice note describing a purchase.
func (s *ExtractionService) ExtractExpenseFromAudio(ctx context.Context, data []byte, fileName string) (*models.ExpenseData, error) {
	prompt := fmt.Sprintf(expensePromptFormat,
		"Escucha esta grabación de un gasto. Asume la fecha actual si no se menciona. Determina si el gasto es formal (si menciona RUC o factura).")
	result, err := s.extractExpense(ctx, data, fileName, prompt, "Gasto por voz")
	s.observeExtraction("expense_audio", err)
	return result, err
}

func (s *ExtractionService) extractExpense(ctx context.Context, data []byte, fileName, prompt, defaultMerchant string) (*models.ExpenseData, error) {
	fileID, err := s.uploadFile(ctx, data, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	content, err := s.generateWithAttachment(ctx, fileID, prompt)
	if err != nil {
		return nil, err
	}

	jsonStr, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var raw rawExpense
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	enriched := s.enrichExpense(&raw, defaultMerchant)
	if enriched == nil {
		return nil, fmt.Errorf("model response missing total amount")
	}

	s.logger.Info("Expense extracted",
		zap.String("merchant", enriched.MerchantName),
		zap.Float64("total", enriched.Total),
		zap.Bool("is_formal", enriched.IsFormal),
	)
	return enriched, nil
}

type rawProduct struct {
	ProductName    string   `json:"product_name"`
	EstimatedPrice *float64 `json:"estimated_price"`
}

const productPromptFormat = `%s

Para cada producto estima un precio de mercado actual en soles peruanos (PEN). Responde únicamente con un arreglo JSON de objetos con "product_name" (string) y "estimated_price" (número). Ejemplo: [{"product_name": "Inca Kola 500ml", "estimated_price": 3.50}]`

// ExtractProductsFromImage identifies products in a photo and estimates
// their prices in soles.
func (s *ExtractionService) ExtractProductsFromImage(ctx context.Context, data []byte, fileName string) ([]models.Product, error) {
	prompt := fmt.Sprintf(productPromptFormat, "Identifica cada producto en la imagen.")
	products, err := s.extractProducts(ctx, data, fileName, prompt)
	s.observeExtraction("products_image", err)
	return products, err
}

// ExtractProductsFromAudio identifies products from a spoken list.
func (s *ExtractionService) ExtractProductsFromAudio(ctx context.Context, data []byte, fileName string) ([]models.Product, error) {
	prompt := fmt.Sprintf(productPromptFormat, "Escucha este audio que describe una lista de productos e identifica cada uno.")
	products, err := s.extractProducts(ctx, data, fileName, prompt)
	s.observeExtraction("products_audio", err)
	return products, err
}

func (s *ExtractionService) extractProducts(ctx context.Context, data []byte, fileName, prompt string) ([]models.Product, error) {
	fileID, err := s.uploadFile(ctx, data, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	content, err := s.generateWithAttachment(ctx, fileID, prompt)
	if err != nil {
		return nil, err
	}

	jsonStr, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var raw []rawProduct
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	products := make([]models.Product, 0, len(raw))
	for _, r := range raw {
		if r.ProductName == "" || r.EstimatedPrice == nil {
			continue
		}
		products = append(products, models.Product{
			ProductName:    r.ProductName,
			EstimatedPrice: *r.EstimatedPrice,
		})
	}

	s.logger.Info("Products extracted", zap.Int("count", len(products)))
	return products, nil
}

// VerifyReceipt audits a receipt photo against the minimum requirements
// for income-tax deduction eligibility.
func (s *ExtractionService) VerifyReceipt(ctx context.Context, data []byte, fileName string) (*models.VerificationResult, error) {
	fileID, err := s.uploadFile(ctx, data, fileName)
	if err != nil {
		s.observeExtraction("verify", err)
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	prompt := `Actúa como un auditor experto de la SUNAT. Analiza la imagen de este comprobante y verifica si cumple los requisitos mínimos para ser un comprobante de pago electrónico válido y potencialmente deducible del Impuesto a la Renta.

Verifica estos 5 puntos:
1. RUC del Emisor: ¿es visible y parece un RUC válido de 11 dígitos?
2. Tipo de Comprobante: ¿es claramente una "BOLETA DE VENTA ELECTRÓNICA" o "FACTURA ELECTRÓNICA"?
3. DNI del Cliente: ¿se observa el DNI del cliente? Sin DNI la boleta no es deducible.
4. Fecha de Emisión: ¿hay una fecha clara y legible?
5. Monto Total: ¿se identifica un monto total claro?

Un ticket simple, una guía de remisión, una proforma o un comprobante manual sin datos fiscales claros NO son válidos.

Responde únicamente con este objeto JSON:
{
  "checks": [{"item": "requisito verificado", "valid": true, "reason": "breve explicación"}],
  "is_valid_for_deduction": true o false,
  "overall_verdict": "resumen conciso (máx 25 palabras)",
  "reason_for_invalidity": "razón principal si no es válido, vacío si lo es"
}`

	content, err := s.generateWithAttachment(ctx, fileID, prompt)
	if err != nil {
		s.observeExtraction("verify", err)
		return nil, err
	}

	jsonStr, err := extractJSON(content)
	if err != nil {
		s.observeExtraction("verify", err)
		return nil, err
	}

	var result models.VerificationResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		s.observeExtraction("verify", err)
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	if result.Checks == nil {
		s.observeExtraction("verify", fmt.Errorf("missing checks"))
		return nil, fmt.Errorf("verification response missing checks")
	}

	s.observeExtraction("verify", nil)
	return &result, nil
}

// ExtractBudgetFromText pulls a numeric budget out of free-form text.
func (s *ExtractionService) ExtractBudgetFromText(ctx context.Context, text string) (float64, error) {
	prompt := fmt.Sprintf(`Del siguiente texto extrae solo el valor numérico de un presupuesto. El usuario está en Perú: considera palabras como "soles". Responde únicamente con el número, sin formato. Texto: %q`, text)

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return 0, fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no response from model")
	}

	cleaned := strings.TrimSpace(resp.Choices[0].Message.Content)
	cleaned = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, cleaned)

	budget, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || budget <= 0 {
		return 0, fmt.Errorf("no budget amount in text")
	}
	return budget, nil
}

func (s *ExtractionService) observeExtraction(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.ExtractionRequests.WithLabelValues(kind, outcome).Inc()
}

func (s *ExtractionService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
