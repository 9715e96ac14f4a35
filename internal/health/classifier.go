package health

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/logging"
)

// Chatter is the reasoning-service boundary: a single prompt/response
// exchange with an optional system instruction.
type Chatter interface {
	Chat(ctx context.Context, system, userMessage string) (string, error)
	IsConfigured() bool
}

// Classifier derives a health status from recent metrics via the reasoning
// service and updates the status cache on success. Any failure, whether
// transport, an unparseable payload, or a status outside the enumeration,
// leaves the cache untouched.
type Classifier struct {
	chat       Chatter
	cache      *StatusCache
	onCritical func(message string)
	log        *logging.Logger
}

// NewClassifier creates a classifier. onCritical, if non-nil, is invoked
// after a CRITICAL result has been cached and before Classify returns; the
// daemon wires it to the alert escalator on a lifetime-scoped context.
func NewClassifier(chat Chatter, cache *StatusCache, onCritical func(message string)) *Classifier {
	return &Classifier{
		chat:       chat,
		cache:      cache,
		onCritical: onCritical,
		log:        logging.WithField("component", "classifier"),
	}
}

// classification is the JSON shape the reasoning service must return
type classification struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Classify analyzes recent data in the context of conditions and
// medications, persists the result to the cache, and signals escalation on
// CRITICAL. The returned error is non-fatal to callers: on failure the
// previous cached value keeps serving.
func (c *Classifier) Classify(ctx context.Context, conditions, medicationNames []string, recentData string) (core.HealthStatus, string, error) {
	if !c.chat.IsConfigured() {
		return "", "", core.ErrLLMUnavailable
	}

	systemPrompt := "You are a medical analysis AI. Output only JSON."

	userPrompt := fmt.Sprintf(`Analyze the following health data in the context of the user's conditions and medications.
Conditions: %s
Medications: %s
Recent Data: %s

Determine the health status (NORMAL, WARNING, or CRITICAL) and provide a concise 1-sentence summary for the user.
Return ONLY a JSON object in this format:
{
  "status": "NORMAL",
  "message": "Your heart rate is slightly elevated, consider resting."
}`, joinOrNone(conditions), joinOrNone(medicationNames), recentData)

	response, err := c.chat.Chat(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", "", fmt.Errorf("health analysis failed: %w", err)
	}

	status, message, err := parseClassification(response)
	if err != nil {
		return "", "", err
	}

	if err := c.cache.Set(ctx, status, message); err != nil {
		return "", "", err
	}

	c.log.Info("health status classified as %s", status)

	if status == core.StatusCritical && c.onCritical != nil {
		c.onCritical(message)
	}

	return status, message, nil
}

// parseClassification decodes the classifier payload, stripping markdown
// code fences the model sometimes wraps JSON in.
func parseClassification(response string) (core.HealthStatus, string, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result classification
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return "", "", fmt.Errorf("%w: %v", core.ErrClassifierResponse, err)
	}

	status := core.HealthStatus(strings.ToUpper(strings.TrimSpace(result.Status)))
	if !status.Valid() {
		return "", "", fmt.Errorf("%w: got %q", core.ErrInvalidStatus, result.Status)
	}

	return status, result.Message, nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
