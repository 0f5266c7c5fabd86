package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteAutoAct(t *testing.T) {
	router := NewReviewRouter(DefaultRouterConfig())
	result := &EnsembleResult{EmailID: "email-1", Category: CategorySpam, Confidence: 0.95}

	disposition, item := router.Route(testEmail(), result)
	assert.Equal(t, DispositionAutoAct, disposition)
	assert.Nil(t, item)
}

func TestRouteAutoActAtThreshold(t *testing.T) {
	router := NewReviewRouter(DefaultRouterConfig())
	result := &EnsembleResult{EmailID: "email-1", Category: CategorySpam, Confidence: 0.90}

	disposition, item := router.Route(testEmail(), result)
	assert.Equal(t, DispositionAutoAct, disposition)
	assert.Nil(t, item)
}

func TestRouteReviewBand(t *testing.T) {
	router := NewReviewRouter(DefaultRouterConfig())
	email := testEmail()
	result := &EnsembleResult{EmailID: email.ID, Category: CategoryImportant, Confidence: 0.75}

	disposition, item := router.Route(email, result)
	assert.Equal(t, DispositionReview, disposition)
	require.NotNil(t, item)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, email.ID, item.EmailID)
	assert.Equal(t, email.Account, item.Account)
	assert.Equal(t, email.From, item.Sender)
	assert.Equal(t, ReviewPending, item.Status)
	assert.False(t, item.Urgent)
	assert.Same(t, result, item.Suggested)
}

func TestRouteLowConfidenceIsUrgent(t *testing.T) {
	router := NewReviewRouter(DefaultRouterConfig())
	result := &EnsembleResult{EmailID: "email-1", Category: CategoryNormal, Confidence: 0.40}

	disposition, item := router.Route(testEmail(), result)
	assert.Equal(t, DispositionLowConfidence, disposition)
	require.NotNil(t, item)
	assert.True(t, item.Urgent)
}

func TestRouteUnclassifiedToLowConfidence(t *testing.T) {
	router := NewReviewRouter(DefaultRouterConfig())
	// High confidence must not matter once the result is unclassified
	result := &EnsembleResult{EmailID: "email-1", Unclassified: true, Confidence: 0.99}

	disposition, item := router.Route(testEmail(), result)
	assert.Equal(t, DispositionLowConfidence, disposition)
	require.NotNil(t, item)
	assert.True(t, item.Urgent)
}
