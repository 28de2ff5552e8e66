// Package setup registers the glucowatch MCP server with coding agents
// (Claude Code, Cursor, Codex, OpenCode) and removes it again.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ServerName is the key the server is registered under.
const ServerName = "glucowatch"

// Agent identifies a supported coding agent.
type Agent string

const (
	ClaudeCode Agent = "claude-code"
	Cursor     Agent = "cursor"
	Codex      Agent = "codex"
	OpenCode   Agent = "opencode"
)

// Agents lists the supported agents in display order.
func Agents() []Agent { return []Agent{ClaudeCode, Cursor, Codex, OpenCode} }

// Label is the agent's display name.
func (a Agent) Label() string {
	switch a {
	case ClaudeCode:
		return "Claude Code"
	case Cursor:
		return "Cursor"
	case Codex:
		return "Codex"
	case OpenCode:
		return "OpenCode"
	default:
		return string(a)
	}
}

// Server describes how an agent launches the MCP server.
type Server struct {
	Command string
	Args    []string
}

// DefaultServer runs `glucowatch mcp`, pinned to home when home is set.
func DefaultServer(home string) Server {
	args := []string{"mcp"}
	if home != "" {
		args = append(args, "--home", home)
	}
	return Server{Command: "glucowatch", Args: args}
}

// Target selects which config file of an agent is edited.
type Target struct {
	// Dir overrides the agent's config directory (~/.cursor, ~/.codex).
	// Claude Code and OpenCode keep their MCP entries outside such a
	// directory and ignore it.
	Dir string
	// Project edits the config of the current project instead of the user's.
	Project bool
	// UserHome and WorkDir default to the user's home and the working
	// directory.
	UserHome string
	WorkDir  string
}

// Result reports what Install or Uninstall did.
type Result struct {
	Changed bool
	Path    string
	Message string
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

func (t Target) base() (string, error) {
	if t.Project {
		if t.WorkDir != "" {
			return t.WorkDir, nil
		}
		return os.Getwd()
	}
	if t.UserHome != "" {
		return t.UserHome, nil
	}
	return os.UserHomeDir()
}

// ConfigPath returns the file holding agent's MCP servers for t.
func ConfigPath(agent Agent, t Target) (string, error) {
	base, err := t.base()
	if err != nil {
		return "", err
	}
	dir := func(dot string) string {
		if t.Dir != "" {
			return t.Dir
		}
		return filepath.Join(base, dot)
	}

	switch agent {
	case ClaudeCode:
		if t.Project {
			return filepath.Join(base, ".mcp.json"), nil
		}
		return filepath.Join(base, ".claude.json"), nil
	case Cursor:
		return filepath.Join(dir(".cursor"), "mcp.json"), nil
	case Codex:
		return filepath.Join(dir(".codex"), "config.toml"), nil
	case OpenCode:
		if t.Project {
			return filepath.Join(base, "opencode.json"), nil
		}
		return filepath.Join(base, ".config", "opencode", "opencode.json"), nil
	default:
		return "", fmt.Errorf("setup: unknown agent %q", agent)
	}
}

// ---------------------------------------------------------------------------
// Install / Uninstall
// ---------------------------------------------------------------------------

// Install registers srv with agent. An existing entry with different
// settings is replaced.
func Install(agent Agent, t Target, srv Server) (Result, error) {
	path, err := ConfigPath(agent, t)
	if err != nil {
		return Result{}, err
	}

	var changed, replaced bool
	switch agent {
	case Codex:
		changed, replaced, err = installTOML(path, srv)
	case OpenCode:
		changed, replaced, err = installJSON(path, "mcp", opencodeEntry(srv))
	default:
		changed, replaced, err = installJSON(path, "mcpServers", stdioEntry(srv))
	}
	if err != nil {
		return Result{}, fmt.Errorf("setup %s: %w", agent, err)
	}

	res := Result{Changed: changed, Path: path}
	switch {
	case replaced:
		res.Message = fmt.Sprintf("Updated %s in %s", ServerName, path)
	case changed:
		res.Message = fmt.Sprintf("Installed %s into %s (%s)", ServerName, agent.Label(), path)
	default:
		res.Message = "Already installed"
	}
	return res, nil
}

// Uninstall removes the server entry from agent's config. A file left empty
// by the removal is deleted.
func Uninstall(agent Agent, t Target) (Result, error) {
	path, err := ConfigPath(agent, t)
	if err != nil {
		return Result{}, err
	}

	var removed bool
	switch agent {
	case Codex:
		removed, err = uninstallTOML(path)
	case OpenCode:
		removed, err = uninstallJSON(path, "mcp")
	default:
		removed, err = uninstallJSON(path, "mcpServers")
	}
	if err != nil {
		return Result{}, fmt.Errorf("uninstall %s: %w", agent, err)
	}
	if !removed {
		return Result{Path: path, Message: "Nothing to remove"}, nil
	}
	return Result{Changed: true, Path: path, Message: fmt.Sprintf("Removed %s from %s (%s)", ServerName, agent.Label(), path)}, nil
}

// ---------------------------------------------------------------------------
// JSON configs (Claude Code, Cursor, OpenCode)
// ---------------------------------------------------------------------------

func stdioEntry(srv Server) map[string]any {
	return map[string]any{
		"type":    "stdio",
		"command": srv.Command,
		"args":    toAny(srv.Args),
	}
}

func opencodeEntry(srv Server) map[string]any {
	return map[string]any{
		"type":    "local",
		"command": toAny(append([]string{srv.Command}, srv.Args...)),
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// readJSON returns the document at path, or an empty one when the file is
// missing. A file that exists but is not a JSON object is an error so that
// it is never overwritten.
func readJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

func writeJSON(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644) // #nosec G306 -- agent config files (MCP server entries) do not contain secrets
}

func installJSON(path, key string, entry map[string]any) (changed, replaced bool, err error) {
	data, err := readJSON(path)
	if err != nil {
		return false, false, err
	}
	servers, _ := data[key].(map[string]any)
	if servers == nil {
		servers = make(map[string]any)
		data[key] = servers
	}
	existing, exists := servers[ServerName]
	if exists && reflect.DeepEqual(existing, entry) {
		return false, false, nil
	}
	servers[ServerName] = entry
	return true, exists, writeJSON(path, data)
}

func uninstallJSON(path, key string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	data, err := readJSON(path)
	if err != nil {
		return false, err
	}
	servers, _ := data[key].(map[string]any)
	if _, exists := servers[ServerName]; !exists {
		return false, nil
	}
	delete(servers, ServerName)
	if len(servers) == 0 {
		delete(data, key)
	}
	if len(data) == 0 {
		return true, os.Remove(path)
	}
	return true, writeJSON(path, data)
}

// ---------------------------------------------------------------------------
// TOML config (Codex)
// ---------------------------------------------------------------------------

// The TOML file is read with a parser but edited as text so the user's
// comments and layout survive.

const tomlHeader = "[mcp_servers." + ServerName + "]"

type codexConfig struct {
	MCPServers map[string]struct {
		Command string   `toml:"command"`
		Args    []string `toml:"args"`
	} `toml:"mcp_servers"`
}

func tomlSection(srv Server) string {
	args := make([]string, len(srv.Args))
	for i, a := range srv.Args {
		args[i] = strconv.Quote(a)
	}
	return fmt.Sprintf("\n%s\ncommand = %s\nargs = [%s]\n", tomlHeader, strconv.Quote(srv.Command), strings.Join(args, ", "))
}

func installTOML(path string, srv Server) (changed, replaced bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, false, err
	}

	var cfg codexConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return false, false, fmt.Errorf("%s: %w", path, err)
	}
	if cur, ok := cfg.MCPServers[ServerName]; ok {
		if cur.Command == srv.Command && slices.Equal(cur.Args, srv.Args) {
			return false, false, nil
		}
		data = []byte(removeTOMLSection(string(data)))
		replaced = true
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, false, err
	}
	content := strings.TrimRight(string(data), "\n")
	if content != "" {
		content += "\n"
	}
	content += tomlSection(srv)
	return true, replaced, os.WriteFile(path, []byte(content), 0o644) // #nosec G306 -- agent TOML config is not a sensitive credential file
}

func uninstallTOML(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var cfg codexConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if _, ok := cfg.MCPServers[ServerName]; !ok {
		return false, nil
	}
	cleaned := removeTOMLSection(string(data))
	if strings.TrimSpace(cleaned) == "" {
		return true, os.Remove(path)
	}
	return true, os.WriteFile(path, []byte(cleaned), 0o644) // #nosec G306 -- agent TOML config is not a sensitive credential file
}

// removeTOMLSection drops the server's table, and any of its sub-tables, up
// to the next unrelated table header.
func removeTOMLSection(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inSection = trimmed == tomlHeader || strings.HasPrefix(trimmed, "[mcp_servers."+ServerName+".")
		}
		if !inSection {
			result = append(result, line)
		}
	}
	return strings.TrimRight(strings.Join(result, "\n"), "\n") + "\n"
}
