package service

import (
	"context"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/logging"
	"github.com/time-economy/internal/types"
)

// Stage is a state of the mutation pipeline.
type Stage string

const (
	StageReceived         Stage = "received"
	StageParsed           Stage = "parsed"
	StageIdentityVerified Stage = "identity_verified"
	StagePolicyChecked    Stage = "policy_checked"
	StagePersisted        Stage = "persisted"
	StageResponded        Stage = "responded"
	StageRejected         Stage = "rejected"
)

// ClaimResolver produces the identity claim for a request.
type ClaimResolver interface {
	Resolve(ctx context.Context, req *identity.Request) (*identity.Claim, error)
}

// pipeline tracks one mutating request through its stages. It only moves
// forward; Rejected is absorbing.
type pipeline struct {
	logger *logging.Logger
	stage  Stage
}

func startPipeline(ctx context.Context, operation string, socialID types.SocialID) *pipeline {
	p := &pipeline{
		logger: logging.FromContext(ctx).WithFields(map[string]interface{}{
			"operation": operation,
			"socialId":  int64(socialID),
		}),
	}
	p.advance(StageReceived)
	return p
}

func (p *pipeline) advance(stage Stage) {
	if p.stage == StageRejected {
		return
	}
	p.stage = stage
	p.logger.WithField("stage", string(stage)).Debug("Pipeline transition")
}

// reject moves the pipeline to Rejected and returns err categorized.
func (p *pipeline) reject(err error) error {
	catErr := apperrors.Categorize(err)
	p.logger.WithFields(map[string]interface{}{
		"stage": string(StageRejected),
		"from":  string(p.stage),
		"code":  catErr.Code,
	}).Debug("Pipeline transition")
	p.stage = StageRejected
	return catErr
}

// done marks the response as produced.
func (p *pipeline) done() {
	p.advance(StageResponded)
}
