package service

import (
	"context"

	"assetdesk/internal/apperr"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"
)

// The eight request forms in the dashboard differ only in which fields they
// require and what happens to the asset on approval. Both concerns live in
// this rule table rather than eight parallel code paths.

type payloadRule struct {
	field   string
	present func(in *CreateRequestInput) bool
}

func hasAsset(in *CreateRequestInput) bool       { return in.AssetID != "" }
func hasRequestedTo(in *CreateRequestInput) bool { return in.Participants.RequestedToID != "" && in.Participants.RequestedToID != "-" }

var payloadRules = map[string][]payloadRule{
	model.RequestTypeAssign: {
		{"assetId", hasAsset},
		{"requestedToId", hasRequestedTo},
	},
	model.RequestTypeRequest: {
		{"assetId", hasAsset},
		{"priority", func(in *CreateRequestInput) bool { return in.Priority != "" }},
	},
	model.RequestTypeReturn: {
		{"assetId", hasAsset},
		{"returnDate", func(in *CreateRequestInput) bool { return in.ReturnDate != nil }},
		{"conditionRating", func(in *CreateRequestInput) bool { return in.ConditionRating != "" }},
	},
	model.RequestTypeRepair: {
		{"assetId", hasAsset},
		{"issueType", func(in *CreateRequestInput) bool { return in.IssueType != "" }},
		{"issueDescription", func(in *CreateRequestInput) bool { return in.IssueDescription != "" }},
	},
	model.RequestTypeRetire: {
		{"assetId", hasAsset},
		{"conditionRating", func(in *CreateRequestInput) bool { return in.ConditionRating != "" }},
		{"retireReason", func(in *CreateRequestInput) bool { return in.RetireReason != "" }},
	},
	model.RequestTypeTransfer: {
		{"assetId", hasAsset},
		{"requestedToId", hasRequestedTo},
	},
	model.RequestTypeUpdate: {
		{"reason", func(in *CreateRequestInput) bool { return in.Reason != "" }},
	},
	model.RequestTypeDispose: {
		{"assetId", hasAsset},
		{"disposalMethod", func(in *CreateRequestInput) bool { return in.DisposalMethod != "" }},
		{"retireReason", func(in *CreateRequestInput) bool { return in.RetireReason != "" }},
	},
}

// validatePayload enforces the per-type required-field table. The first
// missing field wins, named by its JSON key so the form can surface it inline.
func validatePayload(in *CreateRequestInput) error {
	rules, ok := payloadRules[in.Type]
	if !ok {
		return apperr.NewValidationMsg("type", "unknown request type")
	}
	for _, rule := range rules {
		if !rule.present(in) {
			return apperr.NewValidation(rule.field)
		}
	}

	// The update type takes either an inventory-sourced replacement asset or
	// a free-form new-asset suggestion.
	if in.Type == model.RequestTypeUpdate && !hasAsset(in) {
		if in.NewAssetName == "" {
			return apperr.NewValidationMsg("newAssetName", "either assetId or a new-asset suggestion is required")
		}
		if in.NewAssetDescription == "" {
			return apperr.NewValidation("newAssetDescription")
		}
	}

	return nil
}

// canonicalPriority folds the inconsistent priority vocabularies used by the
// request forms into one ordered enum. Empty defaults to medium; "urgent" is
// an alias for critical.
func canonicalPriority(p string) (string, error) {
	switch p {
	case "":
		return model.PriorityMedium, nil
	case "urgent":
		return model.PriorityCritical, nil
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical:
		return p, nil
	default:
		return "", apperr.NewValidationMsg("priority", "must be one of low, medium, high, critical")
	}
}

// returnStatus routes a returned asset to maintenance when it came back in
// poor shape, available otherwise. The asymmetry is deliberate.
func returnStatus(conditionRating string) string {
	if conditionRating == model.ConditionPoor || conditionRating == model.ConditionBroken {
		return model.AssetStatusUnderMaintenance
	}
	return model.AssetStatusAvailable
}

// applyApprovalEffect performs the asset-side mutation for an accepted
// request. Must run inside the same transaction as the status transition;
// any error here rolls the whole transition back.
func applyApprovalEffect(ctx context.Context, assets repository.AssetRepository, req *model.Request) error {
	switch req.Type {
	case model.RequestTypeAssign, model.RequestTypeTransfer:
		return assets.SetAssignment(ctx, *req.AssetID, req.RequestedTo, model.AssetStatusAssigned)
	case model.RequestTypeRequest:
		requester := req.RequestedBy
		return assets.SetAssignment(ctx, *req.AssetID, &requester, model.AssetStatusAssigned)
	case model.RequestTypeReturn:
		return assets.SetAssignment(ctx, *req.AssetID, nil, returnStatus(req.ConditionRating))
	case model.RequestTypeRepair:
		return assets.SetStatus(ctx, *req.AssetID, model.AssetStatusUnderMaintenance)
	case model.RequestTypeRetire:
		return assets.SetStatus(ctx, *req.AssetID, model.AssetStatusRetired)
	case model.RequestTypeDispose:
		return assets.SetAssignment(ctx, *req.AssetID, nil, model.AssetStatusRetired)
	case model.RequestTypeUpdate:
		// No automatic reassignment; the note on the request is the record.
		return nil
	default:
		return apperr.NewValidationMsg("type", "unknown request type")
	}
}

// hasApprovalEffect reports whether accepting a request of this type touches
// the asset at all. Used to skip the asset lookup for update requests with no
// asset reference.
func hasApprovalEffect(req *model.Request) bool {
	return req.Type != model.RequestTypeUpdate && req.AssetID != nil
}
