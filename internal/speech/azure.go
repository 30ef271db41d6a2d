package speech

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
	"github.com/hammamikhairi/ottospeak/internal/metrics"
)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		c.httpClient.Timeout = d
	}
}

// WithEndpoint overrides the regional base URL, e.g. for a proxy.
func WithEndpoint(baseURL string) AzureOption {
	return func(c *AzureClient) {
		c.endpoint = strings.TrimRight(baseURL, "/")
	}
}

// AzureClient handles text-to-speech synthesis and the voice directory via
// Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	endpoint        string
	format          string
	httpClient      *http.Client
	log             *logger.Logger
}

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		endpoint:        fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
		format:          DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize converts text to speech audio data (WAV bytes) using the
// voice's handle as the Azure short name.
func (c *AzureClient) Synthesize(ctx context.Context, text string, voice domain.Voice, p domain.Prosody) ([]byte, error) {
	if voice.Handle == "" {
		return nil, fmt.Errorf("azure tts: voice %q has no short name", voice.DisplayName)
	}

	ssml := buildSSML(text, voice, p)
	c.log.Debug("azure tts: synthesizing %d chars with voice %s (%s)", len(text), voice.Handle, p)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/cognitiveservices/v1", strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)

	start := time.Now()
	audioData, err := c.do(req)
	metrics.ObserveSynthesis(time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	c.log.Debug("azure tts: got %d bytes of audio", len(audioData))
	return audioData, nil
}

// azureVoice is one entry of the voices/list response.
type azureVoice struct {
	Name        string `json:"Name"`
	DisplayName string `json:"DisplayName"`
	LocalName   string `json:"LocalName"`
	ShortName   string `json:"ShortName"`
	Gender      string `json:"Gender"`
	Locale      string `json:"Locale"`
	LocaleName  string `json:"LocaleName"`
	VoiceType   string `json:"VoiceType"`
	Status      string `json:"Status"`
}

// toVoice renders the entry the way desktop speech engines name voices:
// "Microsoft <name> - <locale name>".
func (v azureVoice) toVoice() domain.Voice {
	return domain.Voice{
		LanguageTag: v.Locale,
		DisplayName: fmt.Sprintf("Microsoft %s - %s", v.DisplayName, v.LocaleName),
		Handle:      v.ShortName,
	}
}

// ListVoices fetches the region's voice directory.
func (c *AzureClient) ListVoices(ctx context.Context) ([]domain.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var entries []azureVoice
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decoding voice list: %w", err)
	}

	voices := make([]domain.Voice, 0, len(entries))
	for _, e := range entries {
		if e.ShortName == "" {
			continue
		}
		voices = append(voices, e.toVoice())
	}
	c.log.Debug("azure tts: voice list has %d entries", len(voices))
	return voices, nil
}

func (c *AzureClient) authorize(req *http.Request) {
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("User-Agent", "ottospeak/1.0")
}

func (c *AzureClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}

// buildSSML creates SSML markup for the synthesis request.
func buildSSML(text string, voice domain.Voice, p domain.Prosody) string {
	lang := voice.LanguageTag
	if lang == "" {
		lang = "en-US"
	}

	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(text))

	return fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice xml:lang='%s' name='%s'><prosody pitch='%s' rate='%s'>%s</prosody></voice></speak>`,
		lang, lang, voice.Handle, ssmlPitch(p.Pitch), ssmlRate(p.Rate), escaped.String(),
	)
}

// ssmlPitch maps a pitch multiplier (1 = default) to Azure's relative
// percentage, clamped to the supported ±50%.
func ssmlPitch(pitch float64) string {
	if math.IsNaN(pitch) {
		pitch = 1
	}
	pct := clamp((pitch-1)*50, -50, 50)
	return fmt.Sprintf("%+.0f%%", pct)
}

// ssmlRate passes the rate multiplier through, clamped to [0.5, 2].
func ssmlRate(rate float64) string {
	if math.IsNaN(rate) {
		rate = 1
	}
	return fmt.Sprintf("%.2f", clamp(rate, 0.5, 2))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
