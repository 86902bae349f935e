package service

import (
	"github.com/internhub/internship-back-office/internal/application/command"
	"github.com/internhub/internship-back-office/internal/infrastructure/external/renderer"
	"github.com/internhub/internship-back-office/internal/infrastructure/persistence/redis"
)

// Compile-time checks that the infrastructure pieces satisfy the
// command-side interfaces they are wired into.
var (
	_ command.NumberAllocator     = (*CertificateAllocator)(nil)
	_ command.CertificateRenderer = (*renderer.Client)(nil)
	_ command.CertificateMailer   = (*CertificateMailerAdapter)(nil)
	_ command.IssuanceGuard       = (*redis.IssuanceGuard)(nil)
)
