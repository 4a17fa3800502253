package activity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/msalah0e/cloudcanvas/internal/config"
)

// Actions recorded by the canvas commands.
const (
	ActionOpen    = "open"
	ActionAdd     = "add"
	ActionMove    = "move"
	ActionConfig  = "config"
	ActionDelete  = "delete"
	ActionConnect = "connect"
	ActionSave    = "save"
)

// Entry is one canvas gesture.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Workspace string    `json:"workspace,omitempty"`
	Node      string    `json:"node,omitempty"`
	Details   string    `json:"details,omitempty"`
	OK        bool      `json:"ok"`
}

func logPath() string {
	return filepath.Join(config.ConfigDir(), "activity.jsonl")
}

// Log appends a successful gesture to the activity log.
func Log(action, workspaceID, nodeID, details string) error {
	return appendEntry(Entry{
		Timestamp: time.Now(),
		Action:    action,
		Workspace: workspaceID,
		Node:      nodeID,
		Details:   details,
		OK:        true,
	})
}

// LogFailure appends a gesture whose save failed.
func LogFailure(action, workspaceID, nodeID string, err error) error {
	return appendEntry(Entry{
		Timestamp: time.Now(),
		Action:    action,
		Workspace: workspaceID,
		Node:      nodeID,
		Details:   err.Error(),
	})
}

func appendEntry(entry Entry) error {
	path := logPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "%s\n", data)
	return err
}

// Read returns the newest count entries, optionally for one workspace.
// count <= 0 returns everything.
func Read(workspaceID string, count int) ([]Entry, error) {
	f, err := os.Open(logPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if json.Unmarshal(sc.Bytes(), &e) != nil {
			continue
		}
		if workspaceID != "" && e.Workspace != workspaceID {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	// Later lines win ties.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if count > 0 && len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

// Search finds entries whose action, node or details contain query,
// case-insensitively.
func Search(query string, count int) ([]Entry, error) {
	all, err := Read("", 0)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var results []Entry
	for _, e := range all {
		if contains(e.Action, q) || contains(e.Node, q) || contains(e.Details, q) {
			results = append(results, e)
			if count > 0 && len(results) >= count {
				break
			}
		}
	}
	return results, nil
}

// Clear removes all log entries.
func Clear() error {
	err := os.Remove(logPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
