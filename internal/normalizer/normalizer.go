// Package normalizer turns raw backend output into fully populated
// transaction candidates.
package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fjacquet/spendlog/internal/currencyutils"
	"fjacquet/spendlog/internal/dateutils"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/pipelineerror"
)

// Options configures a Normalizer.
type Options struct {
	DefaultCurrency string
	FallbackLabel   string
	Location        *time.Location
	Now             func() time.Time
	Logger          logging.Logger
}

// Normalizer parses backend output. It is stateless and safe for concurrent use.
type Normalizer struct {
	defaultCurrency string
	fallbackLabel   string
	loc             *time.Location
	now             func() time.Time
	logger          logging.Logger
}

// Result is the outcome of normalizing one backend response.
type Result struct {
	Candidates []models.TransactionCandidate
	// Err is ErrMalformedExtraction when the output was not JSON. Callers treat
	// it the same as an empty candidate list.
	Err error
	// Dropped counts elements discarded for lacking a positive amount.
	Dropped int
}

// New creates a Normalizer, filling unset options with defaults.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		defaultCurrency: strings.ToUpper(opts.DefaultCurrency),
		fallbackLabel:   opts.FallbackLabel,
		loc:             opts.Location,
		now:             opts.Now,
		logger:          opts.Logger,
	}
	if n.defaultCurrency == "" {
		n.defaultCurrency = models.DefaultCurrency
	}
	if n.fallbackLabel == "" {
		n.fallbackLabel = models.DefaultFallbackCategory
	}
	if n.loc == nil {
		n.loc = time.UTC
	}
	if n.now == nil {
		n.now = time.Now
	}
	if n.logger == nil {
		n.logger = logging.NewNopLogger()
	}
	return n
}

// Normalize decodes raw into candidates. rawInput is the user text the
// candidates were extracted from and is copied onto each of them.
func (n *Normalizer) Normalize(raw, rawInput string) Result {
	elements, err := decode(raw)
	if err != nil {
		n.logger.WithError(err).Debug("Backend output is not JSON, treating as no transaction")
		return Result{Err: fmt.Errorf("%w: %v", pipelineerror.ErrMalformedExtraction, err)}
	}

	today := dateutils.StartOfDay(n.now().In(n.loc), n.loc)
	res := Result{Candidates: make([]models.TransactionCandidate, 0, len(elements))}
	for i, el := range elements {
		c, ok := n.normalizeElement(el, today)
		if !ok {
			res.Dropped++
			n.logger.Debug("Dropping element without a positive amount", logging.F(logging.FieldCandidateIndex, i))
			continue
		}
		c.RawInput = rawInput
		res.Candidates = append(res.Candidates, c)
	}
	return res
}

func (n *Normalizer) normalizeElement(el map[string]interface{}, today time.Time) (models.TransactionCandidate, bool) {
	amount, ok := amountField(el)
	if !ok || !amount.IsPositive() {
		return models.TransactionCandidate{}, false
	}

	txType, ok := models.ParseTxType(stringField(el, "type", "polarity", "direction"))
	if !ok {
		txType = models.TxDebit
	}

	label := strings.TrimSpace(stringField(el, "category", "category_name"))
	if label == "" {
		label = n.fallbackLabel
	}

	return models.TransactionCandidate{
		Type:          txType,
		Money:         models.NewMoney(amount, currencyutils.NormalizeCurrency(stringField(el, "currency"), n.defaultCurrency)),
		Date:          dateutils.ParseDateOr(stringField(el, "date"), today),
		CategoryLabel: label,
		Vendor:        strings.TrimSpace(stringField(el, "vendor", "merchant", "payee")),
		Description:   strings.TrimSpace(stringField(el, "description", "note")),
	}, true
}

// StripFences removes a surrounding Markdown code fence, optionally tagged json.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```"), "json")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decode accepts an array of objects, a single object, or an object wrapping
// an array under "transactions". Prose around the JSON is tolerated.
func decode(raw string) ([]map[string]interface{}, error) {
	s := StripFences(raw)
	if s == "" {
		return nil, fmt.Errorf("empty output")
	}

	v, err := unmarshal(s)
	if err != nil {
		inner, ok := embeddedJSON(s)
		if !ok {
			return nil, err
		}
		if v, err = unmarshal(inner); err != nil {
			return nil, err
		}
	}

	switch t := v.(type) {
	case []interface{}:
		return objects(t), nil
	case map[string]interface{}:
		if list, ok := t["transactions"].([]interface{}); ok {
			return objects(list), nil
		}
		return []map[string]interface{}{t}, nil
	}
	return nil, fmt.Errorf("unexpected JSON value %T", v)
}

func unmarshal(s string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// embeddedJSON extracts the outermost array or object from s.
func embeddedJSON(s string) (string, bool) {
	b := []byte(s)
	start := bytes.IndexAny(b, "[{")
	if start == -1 {
		return "", false
	}
	closer := byte(']')
	if b[start] == '{' {
		closer = '}'
	}
	end := bytes.LastIndexByte(b, closer)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func objects(list []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func amountField(el map[string]interface{}) (decimal.Decimal, bool) {
	for _, key := range []string{"amount", "value", "sum"} {
		switch v := el[key].(type) {
		case json.Number:
			d, err := decimal.NewFromString(v.String())
			return d, err == nil
		case string:
			d, err := currencyutils.ParseAmount(v)
			return d, err == nil
		}
	}
	return decimal.Zero, false
}

func stringField(el map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := el[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
