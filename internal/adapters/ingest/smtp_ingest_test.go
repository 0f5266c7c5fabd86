package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawTestMessage = "From: bob@sender.example\r\n" +
	"Subject: hi\r\n" +
	"\r\n" +
	"the body\r\n"

func stamp(t *testing.T, result *core.EnsembleResult, classifyErr error) string {
	t.Helper()
	msg := parseMessage(t, rawTestMessage)
	session := &smtpSession{}
	return string(session.stampHeaders(msg, []byte(rawTestMessage), result, classifyErr))
}

func TestStampHeadersClassifiedResult(t *testing.T) {
	out := stamp(t, &core.EnsembleResult{
		ProcessingID: "proc-1",
		Category:     core.CategoryNewsletter,
		Confidence:   0.91,
		Importance:   0.2,
		Disposition:  core.DispositionAutoAct,
	}, nil)

	assert.Contains(t, out, "X-Triage-Category: newsletter\r\n")
	assert.Contains(t, out, "X-Triage-Confidence: 0.9100\r\n")
	assert.Contains(t, out, "X-Triage-Disposition: auto_act\r\n")
	assert.Contains(t, out, "X-Triage-Processing-ID: proc-1\r\n")
	// Original headers and body survive the rewrite
	assert.Contains(t, out, "Subject: hi\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\nthe body\r\n"))
}

func TestStampHeadersUnclassifiedResult(t *testing.T) {
	out := stamp(t, &core.EnsembleResult{
		ProcessingID: "proc-2",
		Unclassified: true,
		Disposition:  core.DispositionLowConfidence,
	}, nil)

	// An empty category value would be unmatchable downstream
	assert.Contains(t, out, "X-Triage-Category: unclassified\r\n")
	assert.NotContains(t, out, "X-Triage-Category: \r\n")
}

func TestStampHeadersClassificationError(t *testing.T) {
	out := stamp(t, nil, errors.New("all semantic providers failed"))

	assert.Contains(t, out, "X-Triage-Error: all semantic providers failed\r\n")
	assert.NotContains(t, out, "X-Triage-Category")
	require.Contains(t, out, "the body")
}
