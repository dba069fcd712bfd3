package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
)

func (s *Server) TriggerBackup(
	ctx context.Context,
	req *connect.Request[TriggerBackupRequest],
) (*connect.Response[TriggerBackupResponse], error) {
	res := s.backupSvc.Trigger(ctx)

	out := &TriggerBackupResponse{
		Success:      res.Success,
		Status:       string(res.Status),
		Warning:      res.Warning,
		Message:      res.Message,
		Error:        apperrors.SanitizeString(res.Error),
		SnapshotID:   res.SnapshotID,
		TotalRecords: res.TotalRecords,
		Counts:       res.Counts,
	}
	if p, ok := res.Primary(); ok {
		out.FilePath = p.Ref
		out.Size = p.Size
	}
	return connect.NewResponse(out), nil
}

func (s *Server) ListBackups(
	ctx context.Context,
	req *connect.Request[ListBackupsRequest],
) (*connect.Response[ListBackupsResponse], error) {
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	}
	entries := s.backupSvc.List(ctx)
	if req.Msg.Limit > 0 && len(entries) > req.Msg.Limit {
		entries = entries[:req.Msg.Limit]
	}
	return connect.NewResponse(&ListBackupsResponse{Backups: entries}), nil
}

func (s *Server) ControlScheduler(
	ctx context.Context,
	req *connect.Request[ControlSchedulerRequest],
) (*connect.Response[ControlSchedulerResponse], error) {
	if req.Msg.Action == "" {
		return connect.NewResponse(&ControlSchedulerResponse{
			Success: true,
			Status:  s.schedulerSvc.Status(),
		}), nil
	}

	res, err := s.schedulerSvc.Control(ctx, req.Msg.Action)
	if err != nil {
		if errors.Is(err, service.ErrUnknownAction) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, apperrors.NewSafeError(err))
	}
	return connect.NewResponse(&ControlSchedulerResponse{
		Success: res.Success,
		Message: res.Message,
		Status:  res.Status,
	}), nil
}

func (s *Server) ValidateBackup(
	ctx context.Context,
	req *connect.Request[ValidateBackupRequest],
) (*connect.Response[ValidateBackupResponse], error) {
	if req.Msg.BackupPath == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("backupPath is required"))
	}

	v := s.recoverySvc.Validate(ctx, req.Msg.BackupPath)
	if v.NotFound() {
		return nil, connect.NewError(connect.CodeNotFound, errors.New(apperrors.SanitizeString(v.Error)))
	}
	if !v.IsValid {
		return connect.NewResponse(&ValidateBackupResponse{
			Valid:   false,
			Message: apperrors.SanitizeString(v.Error),
		}), nil
	}

	snap := v.Snapshot
	ts := snap.Timestamp
	return connect.NewResponse(&ValidateBackupResponse{
		Valid:        true,
		Message:      "backup is valid",
		SnapshotID:   snap.ID,
		Timestamp:    &ts,
		TotalRecords: snap.TotalRecords,
		Counts:       snap.Counts(),
	}), nil
}

func (s *Server) RestoreBackup(
	ctx context.Context,
	req *connect.Request[RestoreBackupRequest],
) (*connect.Response[RestoreBackupResponse], error) {
	if req.Msg.BackupPath == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("backupPath is required"))
	}
	for _, c := range req.Msg.Include {
		if !recordstore.IsProtected(c) {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %s", apperrors.ErrUnknownCollection, c))
		}
	}

	res, v := s.recoverySvc.Restore(ctx, req.Msg.BackupPath, recovery.Policy{
		OverwriteExisting: req.Msg.OverwriteExisting,
		Include:           req.Msg.Include,
	})
	if res == nil {
		code := connect.CodeFailedPrecondition
		if v.NotFound() {
			code = connect.CodeNotFound
		}
		return nil, connect.NewError(code, errors.New(apperrors.SanitizeString(v.Error)))
	}
	if !res.Success {
		return nil, connect.NewError(restoreCode(res.Err),
			apperrors.NewSafeErrorWithMessage(res.Err, apperrors.SanitizeString(res.Message)))
	}

	return connect.NewResponse(&RestoreBackupResponse{
		Success:           true,
		Message:           res.Message,
		Recovered:         res.RecoveredCounts,
		Failed:            res.FailedCounts,
		Skipped:           res.SkippedCounts,
		PreRecoveryBackup: res.PreRestoreSnapshotRef,
	}), nil
}

func (s *Server) RunAudit(
	ctx context.Context,
	req *connect.Request[RunAuditRequest],
) (*connect.Response[RunAuditResponse], error) {
	return connect.NewResponse(&RunAuditResponse{Report: s.integritySvc.Audit(ctx)}), nil
}

func restoreCode(err error) connect.Code {
	var preErr *apperrors.PreRestoreBackupError
	switch {
	case errors.Is(err, apperrors.ErrRestoreInProgress):
		return connect.CodeAborted
	case errors.As(err, &preErr):
		return connect.CodeInternal
	case apperrors.IsConnectivity(err):
		return connect.CodeUnavailable
	}
	return connect.CodeInternal
}

func recoverPanic(_ context.Context, spec connect.Spec, _ http.Header, p any) error {
	logging.Error("RPC handler panicked",
		logging.String("procedure", spec.Procedure),
		logging.Any("panic", p))
	return connect.NewError(connect.CodeInternal,
		apperrors.NewSafeErrorWithMessage(fmt.Errorf("panic: %v", p), apperrors.GenericError("the request")))
}
