// Package script generates the DCA automation artifact: an executable script
// body plus a metadata document describing it. Generation is deterministic:
// identical plan parameters (including createdAt) yield byte-identical output,
// so retried publications deduplicate under content addressing.
package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"dca-automation/internal/models"
)

// Version is embedded in generated metadata so consumers can detect the
// script layout they are looking at.
const Version = "1.0.0"

// GenerationError reports a missing field after validation. Reaching it
// indicates a bug in the caller, not bad user input.
type GenerationError struct {
	Field string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate artifact: required field %q is empty", e.Field)
}

var scriptTmpl = template.Must(template.New("dca-script").Parse(`// DCA automation script for plan {{.PlanID}}
// Generated for {{.UserAddress}} at {{.CreatedAt}}

const PLAN_ID = {{printf "%q" .PlanID}};
const OWNER = {{printf "%q" .UserAddress}};
const FROM_TOKEN = {{printf "%q" .FromToken}};
const TO_TOKEN = {{printf "%q" .ToToken}};
const AMOUNT_PER_EXECUTION = {{printf "%q" .Amount}};
const SLIPPAGE_PERCENT = {{printf "%q" .Slippage}};
const INTERVAL_MINUTES = {{.IntervalMinutes}};
const DURATION_WEEKS = {{.DurationWeeks}};

async function execute(context) {
  const quote = await context.dex.quote(FROM_TOKEN, TO_TOKEN, AMOUNT_PER_EXECUTION);
  const minOut = context.math.applySlippage(quote.amountOut, SLIPPAGE_PERCENT);
  const tx = await context.dex.swap({
    owner: OWNER,
    fromToken: FROM_TOKEN,
    toToken: TO_TOKEN,
    amountIn: AMOUNT_PER_EXECUTION,
    minAmountOut: minOut,
  });
  return { planId: PLAN_ID, txHash: tx.hash };
}

module.exports = { execute };
`))

// Generate builds the artifact for a validated plan request.
func Generate(req models.PlanRequest) (models.Artifact, error) {
	for field, value := range map[string]string{
		"planId":      req.PlanID,
		"userAddress": req.UserAddress,
		"fromToken":   req.FromToken,
		"toToken":     req.ToToken,
		"amount":      req.Amount,
		"slippage":    req.Slippage,
		"createdAt":   req.CreatedAt,
	} {
		if value == "" {
			return models.Artifact{}, &GenerationError{Field: field}
		}
	}
	if req.IntervalMinutes < 1 {
		return models.Artifact{}, &GenerationError{Field: "intervalMinutes"}
	}
	if req.DurationWeeks < 1 {
		return models.Artifact{}, &GenerationError{Field: "durationWeeks"}
	}

	var buf bytes.Buffer
	if err := scriptTmpl.Execute(&buf, req); err != nil {
		return models.Artifact{}, fmt.Errorf("render script: %w", err)
	}

	meta := models.Metadata{
		Name:            fmt.Sprintf("DCA %s -> %s (%s)", req.FromToken, req.ToToken, req.PlanID),
		Description:     fmt.Sprintf("Recurring swap of %s %s into %s every %d minutes for %d weeks", req.Amount, req.FromToken, req.ToToken, req.IntervalMinutes, req.DurationWeeks),
		PlanID:          req.PlanID,
		Author:          req.UserAddress,
		FromToken:       req.FromToken,
		ToToken:         req.ToToken,
		Amount:          req.Amount,
		IntervalMinutes: req.IntervalMinutes,
		DurationWeeks:   req.DurationWeeks,
		Slippage:        req.Slippage,
		CreatedAt:       req.CreatedAt,
		Version:         Version,
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return models.Artifact{}, fmt.Errorf("encode metadata: %w", err)
	}

	return models.Artifact{
		Script:       buf.String(),
		Metadata:     meta,
		MetadataJSON: metaJSON,
	}, nil
}
