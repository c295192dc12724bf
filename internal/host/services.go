package host

import (
	"context"
)

// Systemd controls services through systemctl.
type Systemd struct {
	Runner Runner
}

// NewSystemd returns a Systemd backed by runner.
func NewSystemd(runner Runner) *Systemd {
	return &Systemd{Runner: runner}
}

// Start starts the named service.
func (s *Systemd) Start(ctx context.Context, name string) error {
	return s.systemctl(ctx, "start", name)
}

// Stop stops the named service.
func (s *Systemd) Stop(ctx context.Context, name string) error {
	return s.systemctl(ctx, "stop", name)
}

// Restart restarts the named service.
func (s *Systemd) Restart(ctx context.Context, name string) error {
	return s.systemctl(ctx, "restart", name)
}

// Running reports whether the named service is active. An inactive service is not an error.
func (s *Systemd) Running(ctx context.Context, name string) (bool, error) {
	_, err := s.Runner.Run(ctx, Command{Name: "systemctl", Args: []string{"is-active", "--quiet", name}})
	if err == nil {
		return true, nil
	}
	if cmdErr, ok := IsCommandError(err); ok && cmdErr.ExitCode > 0 {
		return false, nil
	}
	return false, err
}

func (s *Systemd) systemctl(ctx context.Context, verb string, name string) error {
	_, err := s.Runner.Run(ctx, Command{Name: "systemctl", Args: []string{verb, name}})
	return err
}
