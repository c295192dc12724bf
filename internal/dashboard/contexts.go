package dashboard

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/config"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templating"
)

// Contexts builds the context providers keyed by the identifiers used in ConfigFiles.
func Contexts(cfg *config.Config, sys System, ag Agent, unitName string) map[string]templating.ContextProvider {
	secrets := secretStore{sys: sys, dir: cfg.StateDir}
	identity := &IdentityContext{agent: ag}
	return map[string]templating.ContextProvider{
		ContextHorizon:        &HorizonContext{cfg: cfg, secrets: secrets},
		ContextIdentity:       identity,
		ContextSyslog:         &SyslogContext{cfg: cfg},
		ContextLocalSettings:  &LocalSettingsContext{agent: ag},
		ContextApache:         &ApacheContext{cfg: cfg},
		ContextApacheSSL:      &ApacheSSLContext{cfg: cfg, sys: sys},
		ContextHorizonHAProxy: &HorizonHAProxyContext{agent: ag, unitName: unitName, secrets: secrets},
		ContextHAProxy:        &HAProxyContext{cfg: cfg},
		ContextRouter:         &RouterContext{cfg: cfg},
		ContextSharedDB:       &SharedDBContext{agent: ag},
	}
}

// HorizonContext carries the dashboard's own settings.
type HorizonContext struct {
	cfg     *config.Config
	secrets secretStore
}

func (c *HorizonContext) Name() string { return ContextHorizon }

func (c *HorizonContext) Context(context.Context) (map[string]any, error) {
	secret := c.cfg.Secret
	if secret == "" {
		var err error
		if secret, err = c.secrets.get(secretKeyName); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"debug":           c.cfg.Debug,
		"ubuntu_theme":    c.cfg.UbuntuTheme,
		"default_role":    c.cfg.DefaultRole,
		"webroot":         c.cfg.Webroot,
		"secret":          secret,
		"session_timeout": c.cfg.SessionTimeout,
		"enable_router":   c.cfg.EnableRouter,
	}, nil
}

// IdentityContext reads the keystone endpoint published on identity-service.
type IdentityContext struct {
	agent Agent
}

func (c *IdentityContext) Name() string { return ContextIdentity }

func (c *IdentityContext) Context(ctx context.Context) (map[string]any, error) {
	out := map[string]any{"api_version": defaultAPIVersion, "admin_domain_id": ""}
	settings, _, err := c.settings(ctx)
	if err != nil || settings == nil {
		return out, err
	}
	out["service_host"] = settings["service_host"]
	out["service_port"] = settings["service_port"]
	out["service_protocol"] = valueOr(settings["service_protocol"], defaultServiceScheme)
	out["api_version"] = valueOr(settings["api_version"], defaultAPIVersion)
	out["admin_domain_id"] = settings["admin_domain_id"]
	return out, nil
}

// identityKeys must be published for identity-service to be complete.
var identityKeys = []string{"service_host", "service_port"}

// settings returns the first complete unit's settings and whether the relation exists.
func (c *IdentityContext) settings(ctx context.Context) (map[string]string, bool, error) {
	units, related, err := relationData(ctx, c.agent, EndpointIdentity)
	if err != nil {
		return nil, related, err
	}
	return firstComplete(units, identityKeys), related, nil
}

// SyslogContext toggles syslog logging.
type SyslogContext struct {
	cfg *config.Config
}

func (c *SyslogContext) Name() string { return ContextSyslog }

func (c *SyslogContext) Context(context.Context) (map[string]any, error) {
	return map[string]any{"use_syslog": c.cfg.UseSyslog}, nil
}

// LocalSettingsContext collects settings snippets published by dashboard plugins.
type LocalSettingsContext struct {
	agent Agent
}

func (c *LocalSettingsContext) Name() string { return ContextLocalSettings }

func (c *LocalSettingsContext) Context(ctx context.Context) (map[string]any, error) {
	units, _, err := relationData(ctx, c.agent, EndpointPlugin)
	if err != nil {
		return nil, err
	}
	var settings []string
	for _, u := range units {
		if s := strings.TrimSpace(u["local-settings"]); s != "" {
			settings = append(settings, s)
		}
	}
	return map[string]any{"settings": settings}, nil
}

// ApacheContext carries the backend ports apache listens on behind haproxy.
type ApacheContext struct {
	cfg *config.Config
}

func (c *ApacheContext) Name() string { return ContextApache }

func (c *ApacheContext) Context(context.Context) (map[string]any, error) {
	return map[string]any{
		"http_port":  httpPort,
		"https_port": httpsPort,
		"webroot":    c.cfg.Webroot,
	}, nil
}

// ApacheSSLContext installs the configured certificate, or falls back to snakeoil.
type ApacheSSLContext struct {
	cfg *config.Config
	sys System
}

func (c *ApacheSSLContext) Name() string { return ContextApacheSSL }

func (c *ApacheSSLContext) Context(context.Context) (map[string]any, error) {
	if !c.cfg.SSLConfigured() {
		return map[string]any{
			"ssl_configured": false,
			"ssl_cert_path":  SnakeoilCertPath,
			"ssl_key_path":   SnakeoilKeyPath,
			"ssl_ca_path":    "",
		}, nil
	}
	if err := c.install(c.cfg.SSLCert, SSLCertPath, 0o644); err != nil {
		return nil, err
	}
	if err := c.install(c.cfg.SSLKey, SSLKeyPath, 0o600); err != nil {
		return nil, err
	}
	caPath := ""
	if c.cfg.SSLCA != "" {
		if err := c.install(c.cfg.SSLCA, SSLCAPath, 0o644); err != nil {
			return nil, err
		}
		caPath = SSLCAPath
	}
	return map[string]any{
		"ssl_configured": true,
		"ssl_cert_path":  SSLCertPath,
		"ssl_key_path":   SSLKeyPath,
		"ssl_ca_path":    caPath,
	}, nil
}

func (c *ApacheSSLContext) install(encoded string, path string, perm fs.FileMode) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf(messages.DashboardDecodeSSLFailedFmt, path, err)
	}
	if err := c.sys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf(messages.DashboardWriteSSLFailedFmt, path, err)
	}
	if err := c.sys.WriteFileAtomic(path, data, perm); err != nil {
		return fmt.Errorf(messages.DashboardWriteSSLFailedFmt, path, err)
	}
	return nil
}

// Backend is one haproxy backend server.
type Backend struct {
	Name    string
	Address string
}

// HorizonHAProxyContext lists this unit and its peers as haproxy backends.
type HorizonHAProxyContext struct {
	agent    Agent
	unitName string
	secrets  secretStore
}

func (c *HorizonHAProxyContext) Name() string { return ContextHorizonHAProxy }

func (c *HorizonHAProxyContext) Context(ctx context.Context) (map[string]any, error) {
	addr, err := c.agent.UnitGet(ctx, "private-address")
	if err != nil {
		return nil, fmt.Errorf(messages.DashboardUnitAddressFailedFmt, err)
	}
	units := []Backend{{Name: backendName(c.unitName), Address: addr}}
	peers, err := peerBackends(ctx, c.agent)
	if err != nil {
		return nil, err
	}
	units = append(units, peers...)
	password, err := c.secrets.get(statsPasswordName)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"units":          units,
		"http_port":      httpPort,
		"https_port":     httpsPort,
		"stats_port":     haproxyStatsPort,
		"stats_password": password,
	}, nil
}

func peerBackends(ctx context.Context, ag Agent) ([]Backend, error) {
	ids, err := ag.RelationIDs(ctx, EndpointCluster)
	if err != nil {
		return nil, fmt.Errorf(messages.DashboardRelationFailedFmt, EndpointCluster, err)
	}
	var out []Backend
	for _, id := range ids {
		units, err := ag.RelatedUnits(ctx, id)
		if err != nil {
			return nil, fmt.Errorf(messages.DashboardRelationFailedFmt, EndpointCluster, err)
		}
		for _, unit := range units {
			settings, err := ag.RelationGet(ctx, id, unit)
			if err != nil {
				return nil, fmt.Errorf(messages.DashboardRelationFailedFmt, EndpointCluster, err)
			}
			if addr := settings["private-address"]; addr != "" {
				out = append(out, Backend{Name: backendName(unit), Address: addr})
			}
		}
	}
	return out, nil
}

func backendName(unit string) string {
	return strings.ReplaceAll(unit, "/", "-")
}

// HAProxyContext carries haproxy timeouts.
type HAProxyContext struct {
	cfg *config.Config
}

func (c *HAProxyContext) Name() string { return ContextHAProxy }

func (c *HAProxyContext) Context(context.Context) (map[string]any, error) {
	return map[string]any{
		"haproxy_server_timeout":  c.cfg.HAProxyServerTimeout,
		"haproxy_client_timeout":  c.cfg.HAProxyClientTimeout,
		"haproxy_queue_timeout":   c.cfg.HAProxyQueueTimeout,
		"haproxy_connect_timeout": c.cfg.HAProxyConnectTimeout,
	}, nil
}

// RouterContext hides the router panel when routers are disabled.
type RouterContext struct {
	cfg *config.Config
}

func (c *RouterContext) Name() string { return ContextRouter }

func (c *RouterContext) Context(context.Context) (map[string]any, error) {
	return map[string]any{"disable_router": !c.cfg.EnableRouter}, nil
}

// SharedDBContext reads database credentials from shared-db.
type SharedDBContext struct {
	agent Agent
}

func (c *SharedDBContext) Name() string { return ContextSharedDB }

func (c *SharedDBContext) Context(ctx context.Context) (map[string]any, error) {
	units, _, err := relationData(ctx, c.agent, EndpointSharedDB)
	if err != nil {
		return nil, err
	}
	u := firstComplete(units, []string{"db_host", "password"})
	if u == nil {
		return map[string]any{}, nil
	}
	return map[string]any{
		"database_host":     u["db_host"],
		"database":          databaseName,
		"database_user":     databaseUser,
		"database_password": u["password"],
	}, nil
}

// relationData returns every remote unit's settings on endpoint and whether any relation
// is established.
func relationData(ctx context.Context, ag Agent, endpoint string) ([]map[string]string, bool, error) {
	ids, err := ag.RelationIDs(ctx, endpoint)
	if err != nil {
		return nil, false, fmt.Errorf(messages.DashboardRelationFailedFmt, endpoint, err)
	}
	var out []map[string]string
	for _, id := range ids {
		units, err := ag.RelatedUnits(ctx, id)
		if err != nil {
			return nil, true, fmt.Errorf(messages.DashboardRelationFailedFmt, endpoint, err)
		}
		for _, unit := range units {
			settings, err := ag.RelationGet(ctx, id, unit)
			if err != nil {
				return nil, true, fmt.Errorf(messages.DashboardRelationFailedFmt, endpoint, err)
			}
			out = append(out, settings)
		}
	}
	return out, len(ids) > 0, nil
}

// firstComplete returns the first settings map holding every key, or nil.
func firstComplete(units []map[string]string, keys []string) map[string]string {
	for _, u := range units {
		complete := true
		for _, k := range keys {
			if u[k] == "" {
				complete = false
				break
			}
		}
		if complete {
			return u
		}
	}
	return nil
}

func valueOr(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// secretStore keeps generated secrets in the state directory so they survive hook runs.
type secretStore struct {
	sys System
	dir string
}

func (s secretStore) get(name string) (string, error) {
	path := filepath.Join(s.dir, name)
	data, err := s.sys.ReadFile(path)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return strings.TrimSpace(string(data)), nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf(messages.DashboardSecretFailedFmt, path, err)
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf(messages.DashboardSecretFailedFmt, path, err)
	}
	secret := hex.EncodeToString(buf)
	if err := s.sys.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf(messages.DashboardSecretFailedFmt, path, err)
	}
	if err := s.sys.WriteFileAtomic(path, []byte(secret+"\n"), 0o600); err != nil {
		return "", fmt.Errorf(messages.DashboardSecretFailedFmt, path, err)
	}
	return secret, nil
}
