package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"assetdesk/internal/apperr"
	"assetdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) createRequest(t *testing.T, in CreateRequestInput) *RequestResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	return resp
}

func (f *fixture) assignInput(requester, target, assetID uuid.UUID) CreateRequestInput {
	return CreateRequestInput{
		Type:        model.RequestTypeAssign,
		AssetID:     assetID.String(),
		Description: "assign the spare laptop",
		Participants: ParticipantsInput{
			RequestedByID: requester.String(),
			RequestedToID: target.String(),
		},
	}
}

func TestCreateRequest_RoundTrip(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)
	departmentID := f.seedDepartment()

	in := f.assignInput(requester, target, assetID)
	in.Participants.DepartmentID = departmentID.String()
	in.Notes = "needed for onboarding"

	resp := f.createRequest(t, in)

	assert.Equal(t, model.RequestTypeAssign, resp.Type)
	assert.Equal(t, model.RequestStatusPending, resp.Status)
	assert.Equal(t, model.PriorityMedium, resp.Priority) // empty priority defaults
	assert.Equal(t, "assign the spare laptop", resp.Description)
	assert.Equal(t, "needed for onboarding", resp.Notes)
	assert.Equal(t, requester.String(), resp.RequestedBy)
	require.NotNil(t, resp.RequestedTo)
	assert.Equal(t, target.String(), *resp.RequestedTo)
	require.NotNil(t, resp.AssetID)
	assert.Equal(t, assetID.String(), *resp.AssetID)
	require.NotNil(t, resp.DepartmentID)
	assert.Equal(t, departmentID.String(), *resp.DepartmentID)
	assert.Nil(t, resp.ResolvedBy)
	assert.Nil(t, resp.ResolvedAt)

	// Creation is audited and announced.
	assert.Equal(t, []string{model.ActionCreateRequest}, f.auditActions())
	assert.Len(t, f.events.messages, 1)

	// Get returns the same record.
	got, err := f.svc.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assert.Equal(t, resp.Status, got.Status)
}

func TestCreateRequest_UrgentPriorityCanonicalized(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	assetID := f.seedAsset(model.AssetStatusAssigned, &requester)

	in := CreateRequestInput{
		Type:             model.RequestTypeRepair,
		AssetID:          assetID.String(),
		Priority:         "urgent",
		IssueType:        "hardware",
		IssueDescription: "battery swollen",
		Participants:     ParticipantsInput{RequestedByID: requester.String()},
	}

	resp := f.createRequest(t, in)
	assert.Equal(t, model.PriorityCritical, resp.Priority)
}

func TestCreateRequest_RepairDefaultsToMediumPriority(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	assetID := f.seedAsset(model.AssetStatusAssigned, &requester)

	in := CreateRequestInput{
		Type:             model.RequestTypeRepair,
		AssetID:          assetID.String(),
		IssueType:        "software",
		IssueDescription: "OS fails to boot after update",
		Participants:     ParticipantsInput{RequestedByID: requester.String()},
	}

	resp := f.createRequest(t, in)
	assert.Equal(t, model.PriorityMedium, resp.Priority)
}

func TestCreateRequest_SentinelAssigneeMeansAnyManager(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	for _, sentinel := range []string{"", "-"} {
		in := CreateRequestInput{
			Type:         model.RequestTypeRequest,
			AssetID:      assetID.String(),
			Priority:     "high",
			Participants: ParticipantsInput{RequestedByID: requester.String(), RequestedToID: sentinel},
		}

		resp := f.createRequest(t, in)
		assert.Nil(t, resp.RequestedTo)
		assert.Equal(t, "Manager", resp.AssigneeName)
	}
}

func TestCreateRequest_InvalidPayload(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	in := CreateRequestInput{
		Type:         model.RequestTypeRequest,
		AssetID:      assetID.String(),
		Participants: ParticipantsInput{RequestedByID: requester.String()},
		// priority missing
	}

	_, err := f.svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, f.store.requests, "nothing persisted on validation failure")
	assert.Empty(t, f.store.audit)
}

func TestCreateRequest_DanglingReferences(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	t.Run("unknown asset", func(t *testing.T) {
		in := f.assignInput(requester, target, uuid.New())
		_, err := f.svc.Create(context.Background(), in)
		require.Error(t, err)
		assert.True(t, apperr.IsReference(err))
	})

	t.Run("unknown requester", func(t *testing.T) {
		in := f.assignInput(uuid.New(), target, assetID)
		_, err := f.svc.Create(context.Background(), in)
		require.Error(t, err)
		assert.True(t, apperr.IsReference(err))
	})

	t.Run("unknown target user", func(t *testing.T) {
		in := f.assignInput(requester, uuid.New(), assetID)
		_, err := f.svc.Create(context.Background(), in)
		require.Error(t, err)
		assert.True(t, apperr.IsReference(err))
	})

	t.Run("unknown department", func(t *testing.T) {
		in := f.assignInput(requester, target, assetID)
		in.Participants.DepartmentID = uuid.New().String()
		_, err := f.svc.Create(context.Background(), in)
		require.Error(t, err)
		assert.True(t, apperr.IsReference(err))
	})

	assert.Empty(t, f.store.requests)
}

func TestTransition_AcceptAssign(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	resp := f.createRequest(t, f.assignInput(requester, target, assetID))

	accepted, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.ResolvedBy)
	assert.Equal(t, manager.String(), *accepted.ResolvedBy)
	assert.NotNil(t, accepted.ResolvedAt)

	asset := f.store.assets[assetID]
	assert.Equal(t, model.AssetStatusAssigned, asset.Status)
	require.NotNil(t, asset.AssignedTo)
	assert.Equal(t, target, *asset.AssignedTo)

	assert.Equal(t, []string{model.ActionCreateRequest, model.ActionAcceptRequest}, f.auditActions())
}

func TestTransition_AcceptRequestAssignsToRequester(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	resp := f.createRequest(t, CreateRequestInput{
		Type:         model.RequestTypeRequest,
		AssetID:      assetID.String(),
		Priority:     "high",
		Participants: ParticipantsInput{RequestedByID: requester.String()},
	})

	_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
	require.NoError(t, err)

	asset := f.store.assets[assetID]
	assert.Equal(t, model.AssetStatusAssigned, asset.Status)
	require.NotNil(t, asset.AssignedTo)
	assert.Equal(t, requester, *asset.AssignedTo)
}

func TestTransition_AcceptReturn(t *testing.T) {
	tests := []struct {
		condition  string
		wantStatus string
	}{
		{model.ConditionGood, model.AssetStatusAvailable},
		{model.ConditionFair, model.AssetStatusAvailable},
		{model.ConditionPoor, model.AssetStatusUnderMaintenance},
		{model.ConditionBroken, model.AssetStatusUnderMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			f := newFixture()
			requester := f.seedUser(model.RoleStaff)
			manager := f.seedUser(model.RoleManager)
			assetID := f.seedAsset(model.AssetStatusAssigned, &requester)

			returnDate := time.Now().Add(48 * time.Hour)
			resp := f.createRequest(t, CreateRequestInput{
				Type:            model.RequestTypeReturn,
				AssetID:         assetID.String(),
				ReturnDate:      &returnDate,
				ConditionRating: tt.condition,
				Participants:    ParticipantsInput{RequestedByID: requester.String()},
			})

			_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
			require.NoError(t, err)

			asset := f.store.assets[assetID]
			assert.Equal(t, tt.wantStatus, asset.Status)
			assert.Nil(t, asset.AssignedTo, "returned assets are unassigned")
		})
	}
}

func TestTransition_AcceptRepairKeepsAssignee(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAssigned, &requester)

	resp := f.createRequest(t, CreateRequestInput{
		Type:             model.RequestTypeRepair,
		AssetID:          assetID.String(),
		IssueType:        "hardware",
		IssueDescription: "keyboard dead keys",
		Participants:     ParticipantsInput{RequestedByID: requester.String()},
	})

	_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
	require.NoError(t, err)

	asset := f.store.assets[assetID]
	assert.Equal(t, model.AssetStatusUnderMaintenance, asset.Status)
	require.NotNil(t, asset.AssignedTo, "repair keeps the current assignee")
	assert.Equal(t, requester, *asset.AssignedTo)
}

func TestTransition_AcceptRetireAndDispose(t *testing.T) {
	t.Run("retire keeps assignee", func(t *testing.T) {
		f := newFixture()
		requester := f.seedUser(model.RoleStaff)
		manager := f.seedUser(model.RoleManager)
		assetID := f.seedAsset(model.AssetStatusAssigned, &requester)

		resp := f.createRequest(t, CreateRequestInput{
			Type:            model.RequestTypeRetire,
			AssetID:         assetID.String(),
			ConditionRating: model.ConditionPoor,
			RetireReason:    "five years old, battery gone",
			Participants:    ParticipantsInput{RequestedByID: requester.String()},
		})

		_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
		require.NoError(t, err)

		asset := f.store.assets[assetID]
		assert.Equal(t, model.AssetStatusRetired, asset.Status)
		assert.NotNil(t, asset.AssignedTo)
	})

	t.Run("dispose unassigns", func(t *testing.T) {
		f := newFixture()
		requester := f.seedUser(model.RoleStaff)
		manager := f.seedUser(model.RoleManager)
		assetID := f.seedAsset(model.AssetStatusAssigned, &requester)

		resp := f.createRequest(t, CreateRequestInput{
			Type:           model.RequestTypeDispose,
			AssetID:        assetID.String(),
			DisposalMethod: "certified e-waste",
			RetireReason:   "water damage",
			Participants:   ParticipantsInput{RequestedByID: requester.String()},
		})

		_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
		require.NoError(t, err)

		asset := f.store.assets[assetID]
		assert.Equal(t, model.AssetStatusRetired, asset.Status)
		assert.Nil(t, asset.AssignedTo)
	})
}

func TestTransition_AcceptUpdateTouchesNoAsset(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAssigned, &requester)

	resp := f.createRequest(t, CreateRequestInput{
		Type:         model.RequestTypeUpdate,
		AssetID:      assetID.String(),
		Reason:       "needs RAM upgrade",
		Participants: ParticipantsInput{RequestedByID: requester.String()},
	})

	before := f.store.assets[assetID]
	_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
	require.NoError(t, err)

	after := f.store.assets[assetID]
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.AssignedTo, after.AssignedTo)
}

func TestTransition_RejectLeavesAssetUntouched(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	resp := f.createRequest(t, f.assignInput(requester, target, assetID))

	rejected, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusRejected, manager.String(), "asset reserved for new hires")
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusRejected, rejected.Status)
	assert.Equal(t, "asset reserved for new hires", rejected.RejectionReason)

	asset := f.store.assets[assetID]
	assert.Equal(t, model.AssetStatusAvailable, asset.Status)
	assert.Nil(t, asset.AssignedTo)

	assert.Equal(t, []string{model.ActionCreateRequest, model.ActionRejectRequest}, f.auditActions())
}

func TestTransition_SecondResolveConflicts(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	resp := f.createRequest(t, f.assignInput(requester, target, assetID))

	_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
	require.NoError(t, err)

	// Any further transition, same or different status, conflicts.
	for _, status := range []string{model.RequestStatusAccepted, model.RequestStatusRejected} {
		_, err = f.svc.Transition(context.Background(), resp.ID, status, manager.String(), "")
		require.Error(t, err)
		assert.True(t, apperr.IsInvalidState(err))
	}

	// The asset keeps the state from the first, successful accept.
	asset := f.store.assets[assetID]
	assert.Equal(t, model.AssetStatusAssigned, asset.Status)
	require.NotNil(t, asset.AssignedTo)
	assert.Equal(t, target, *asset.AssignedTo)
}

func TestTransition_AssetMutationFailureRollsBack(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	assetID := f.seedAsset(model.AssetStatusAvailable, nil)

	resp := f.createRequest(t, f.assignInput(requester, target, assetID))
	auditBefore := len(f.store.audit)

	f.assets.failMutation = errors.New("deadlock detected")
	_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidState(err))

	// The whole transition rolled back: still pending, still resolvable.
	stored := f.store.requests[uuidMust(resp.ID)]
	assert.Equal(t, model.RequestStatusPending, stored.Status)
	assert.Nil(t, stored.ResolvedBy)
	assert.Len(t, f.store.audit, auditBefore, "no audit entry for the failed transition")

	f.assets.failMutation = nil
	accepted, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, manager.String(), "")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, accepted.Status)
}

func TestTransition_Permissions(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	namedAssignee := f.seedUser(model.RoleStaff)
	stranger := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)
	admin := f.seedUser(model.RoleAdmin)

	newRequest := func(t *testing.T) string {
		assetID := f.seedAsset(model.AssetStatusAvailable, nil)
		return f.createRequest(t, f.assignInput(requester, namedAssignee, assetID)).ID
	}

	t.Run("named assignee may resolve regardless of role", func(t *testing.T) {
		id := newRequest(t)
		_, err := f.svc.Transition(context.Background(), id, model.RequestStatusAccepted, namedAssignee.String(), "")
		assert.NoError(t, err)
	})

	t.Run("manager may resolve", func(t *testing.T) {
		id := newRequest(t)
		_, err := f.svc.Transition(context.Background(), id, model.RequestStatusRejected, manager.String(), "no stock")
		assert.NoError(t, err)
	})

	t.Run("admin may resolve", func(t *testing.T) {
		id := newRequest(t)
		_, err := f.svc.Transition(context.Background(), id, model.RequestStatusAccepted, admin.String(), "")
		assert.NoError(t, err)
	})

	t.Run("unrelated staff may not", func(t *testing.T) {
		id := newRequest(t)
		_, err := f.svc.Transition(context.Background(), id, model.RequestStatusAccepted, stranger.String(), "")
		require.Error(t, err)
		assert.True(t, apperr.IsPermission(err))
	})

	t.Run("unknown actor", func(t *testing.T) {
		id := newRequest(t)
		_, err := f.svc.Transition(context.Background(), id, model.RequestStatusAccepted, uuid.New().String(), "")
		require.Error(t, err)
		assert.True(t, apperr.IsReference(err))
	})
}

func TestTransition_StrangerDeniedForEveryType(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleStaff)
	stranger := f.seedUser(model.RoleStaff)

	returnDate := time.Now().Add(24 * time.Hour)

	for _, requestType := range model.RequestTypes {
		t.Run(requestType, func(t *testing.T) {
			assetID := f.seedAsset(model.AssetStatusAssigned, &requester)
			in := CreateRequestInput{
				Type:         requestType,
				AssetID:      assetID.String(),
				Participants: ParticipantsInput{RequestedByID: requester.String()},
			}
			switch requestType {
			case model.RequestTypeAssign, model.RequestTypeTransfer:
				in.Participants.RequestedToID = target.String()
			case model.RequestTypeRequest:
				in.Priority = "low"
			case model.RequestTypeReturn:
				in.ReturnDate = &returnDate
				in.ConditionRating = model.ConditionGood
			case model.RequestTypeRepair:
				in.IssueType = "hardware"
				in.IssueDescription = "fan noise"
			case model.RequestTypeRetire:
				in.ConditionRating = model.ConditionPoor
				in.RetireReason = "end of life"
			case model.RequestTypeDispose:
				in.DisposalMethod = "recycle"
				in.RetireReason = "beyond repair"
			case model.RequestTypeUpdate:
				in.Reason = "hardware refresh"
			}

			resp := f.createRequest(t, in)

			_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusAccepted, stranger.String(), "")
			require.Error(t, err)
			assert.True(t, apperr.IsPermission(err))

			stored := f.store.requests[uuidMust(resp.ID)]
			assert.Equal(t, model.RequestStatusPending, stored.Status)
		})
	}
}

func TestTransition_BadInputs(t *testing.T) {
	f := newFixture()
	manager := f.seedUser(model.RoleManager)

	t.Run("malformed request id reads as not found", func(t *testing.T) {
		_, err := f.svc.Transition(context.Background(), "not-a-uuid", model.RequestStatusAccepted, manager.String(), "")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("unknown request id", func(t *testing.T) {
		_, err := f.svc.Transition(context.Background(), uuid.New().String(), model.RequestStatusAccepted, manager.String(), "")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("malformed actor id", func(t *testing.T) {
		_, err := f.svc.Transition(context.Background(), uuid.New().String(), model.RequestStatusAccepted, "nope", "")
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("non-terminal target status", func(t *testing.T) {
		_, err := f.svc.Transition(context.Background(), uuid.New().String(), model.RequestStatusPending, manager.String(), "")
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestDelete(t *testing.T) {
	f := newFixture()
	requester := f.seedUser(model.RoleStaff)
	target := f.seedUser(model.RoleStaff)
	manager := f.seedUser(model.RoleManager)

	t.Run("creator deletes a pending request", func(t *testing.T) {
		assetID := f.seedAsset(model.AssetStatusAssigned, &requester)
		resp := f.createRequest(t, CreateRequestInput{
			Type:           model.RequestTypeDispose,
			AssetID:        assetID.String(),
			DisposalMethod: "recycle",
			RetireReason:   "superseded",
			Participants:   ParticipantsInput{RequestedByID: requester.String()},
		})

		require.NoError(t, f.svc.Delete(context.Background(), resp.ID, requester.String()))

		_, err := f.svc.Get(context.Background(), resp.ID)
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))

		asset := f.store.assets[assetID]
		assert.Equal(t, model.AssetStatusAssigned, asset.Status, "deleting a request never touches the asset")
	})

	t.Run("non-creator is forbidden, even a manager", func(t *testing.T) {
		assetID := f.seedAsset(model.AssetStatusAvailable, nil)
		resp := f.createRequest(t, f.assignInput(requester, target, assetID))

		err := f.svc.Delete(context.Background(), resp.ID, manager.String())
		require.Error(t, err)
		assert.True(t, apperr.IsPermission(err))
	})

	t.Run("resolved requests cannot be deleted", func(t *testing.T) {
		assetID := f.seedAsset(model.AssetStatusAvailable, nil)
		resp := f.createRequest(t, f.assignInput(requester, target, assetID))
		_, err := f.svc.Transition(context.Background(), resp.ID, model.RequestStatusRejected, manager.String(), "")
		require.NoError(t, err)

		err = f.svc.Delete(context.Background(), resp.ID, requester.String())
		require.Error(t, err)
		assert.True(t, apperr.IsPermission(err))
	})

	t.Run("unknown request", func(t *testing.T) {
		err := f.svc.Delete(context.Background(), uuid.New().String(), requester.String())
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}
