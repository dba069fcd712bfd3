// Package rpc exposes the backup service over the Connect protocol, which
// serves HTTP/1.1 JSON clients as well as gRPC-compatible ones.
package rpc

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
)

// ServiceName is the fully-qualified name of the backup service.
const ServiceName = "clinicguard.v1.BackupService"

// Procedure paths.
const (
	TriggerBackupProcedure    = "/" + ServiceName + "/TriggerBackup"
	ListBackupsProcedure      = "/" + ServiceName + "/ListBackups"
	ControlSchedulerProcedure = "/" + ServiceName + "/ControlScheduler"
	ValidateBackupProcedure   = "/" + ServiceName + "/ValidateBackup"
	RestoreBackupProcedure    = "/" + ServiceName + "/RestoreBackup"
	RunAuditProcedure         = "/" + ServiceName + "/RunAudit"
)

// Options configures the RPC handlers
type Options struct {
	// APIKey is required in X-API-Key or a Bearer token when set.
	APIKey string
}

// Server wraps the service layer for Connect-RPC
type Server struct {
	backupSvc    *service.BackupService
	recoverySvc  *service.RecoveryService
	integritySvc *service.IntegrityService
	schedulerSvc *service.SchedulerService
	opts         Options
}

// NewServer creates a new Connect-RPC server
func NewServer(svc *service.Services, opts *Options) *Server {
	s := &Server{
		backupSvc:    svc.Backup,
		recoverySvc:  svc.Recovery,
		integritySvc: svc.Integrity,
		schedulerSvc: svc.Scheduler,
	}
	if opts != nil {
		s.opts = *opts
	}
	return s
}

// Handler returns the path prefix and handler for the backup service, for
// mounting on a mux.
func (s *Server) Handler() (string, http.Handler) {
	options := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(newLoggingInterceptor(), newAuthInterceptor(s.opts.APIKey)),
		connect.WithRecover(recoverPanic),
	}

	mux := http.NewServeMux()
	mux.Handle(TriggerBackupProcedure, connect.NewUnaryHandler(TriggerBackupProcedure, s.TriggerBackup, options...))
	mux.Handle(ListBackupsProcedure, connect.NewUnaryHandler(ListBackupsProcedure, s.ListBackups, options...))
	mux.Handle(ControlSchedulerProcedure, connect.NewUnaryHandler(ControlSchedulerProcedure, s.ControlScheduler, options...))
	mux.Handle(ValidateBackupProcedure, connect.NewUnaryHandler(ValidateBackupProcedure, s.ValidateBackup, options...))
	mux.Handle(RestoreBackupProcedure, connect.NewUnaryHandler(RestoreBackupProcedure, s.RestoreBackup, options...))
	mux.Handle(RunAuditProcedure, connect.NewUnaryHandler(RunAuditProcedure, s.RunAudit, options...))
	return "/" + ServiceName + "/", mux
}

// RegisterHandlers mounts the backup service on mux.
func (s *Server) RegisterHandlers(mux *http.ServeMux) {
	path, handler := s.Handler()
	mux.Handle(path, handler)
}
