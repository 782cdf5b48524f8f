package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/logging"
	"github.com/Dicklesworthstone/otpdash/internal/output"
)

// codeServer is an in-memory password server with /entries, /groups and
// /codes.
type codeServer struct {
	mu      sync.Mutex
	entries map[string]api.Entry
	groups  map[string]api.Group
	codes   map[string]api.CodeResponse
	secrets map[string]string
	seq     int
}

func newCodeServer(t *testing.T) (*codeServer, *httptest.Server) {
	t.Helper()
	s := &codeServer{
		entries: map[string]api.Entry{
			"gh":   {ID: "gh", GroupID: "work", Title: "GitHub", Username: "octo", Password: "hunter2", HaveTOTP: true, Notes: "Recovery codes are in the safe."},
			"mail": {ID: "mail", Title: "Mail", Username: "me@example.com", HaveTOTP: true},
			"wiki": {ID: "wiki", GroupID: "work", Title: "Wiki"},
		},
		groups: map[string]api.Group{
			"work": {ID: "work", Name: "Work"},
		},
		codes: map[string]api.CodeResponse{
			"gh":   {Code: "123456", RemainingSeconds: 20, Interval: 30},
			"mail": {Code: "654321", RemainingSeconds: 25, Interval: 30},
		},
		secrets: map[string]string{"gh": "JBSWY3DPEHPK3PXP"},
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *codeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case parts[0] == "entries":
		s.serveEntries(w, r, parts[1:])
	case parts[0] == "groups":
		s.serveGroups(w, r, parts[1:])
	case parts[0] == "generate-password":
		n, err := strconv.Atoi(r.URL.Query().Get("length"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"password": strings.Repeat("x", n)})
	case parts[0] == "codes" && len(parts) == 1:
		var out api.TokensResponse
		for id, c := range s.codes {
			out.Tokens = append(out.Tokens, api.Token{Name: s.entries[id].Title, CurrentCode: c.Code, SecondsRemaining: c.RemainingSeconds})
		}
		_ = json.NewEncoder(w).Encode(out)
	case parts[0] == "codes" && len(parts) == 2:
		c, ok := s.codes[parts[1]]
		if !ok {
			notFound(w)
			return
		}
		_ = json.NewEncoder(w).Encode(c)
	case parts[0] == "codes" && len(parts) == 3 && parts[2] == "details":
		c, ok := s.codes[parts[1]]
		if !ok {
			notFound(w)
			return
		}
		_ = json.NewEncoder(w).Encode(api.DetailsResponse{
			Name:             s.entries[parts[1]].Title,
			Code:             c.Code,
			RemainingSeconds: c.RemainingSeconds,
			Interval:         c.Interval,
			Secret:           s.secrets[parts[1]],
			QRCode:           "data:image/png;base64,AAAA",
		})
	default:
		notFound(w)
	}
}

func (s *codeServer) serveEntries(w http.ResponseWriter, r *http.Request, rest []string) {
	id := ""
	if len(rest) > 0 {
		id = rest[0]
	}
	switch {
	case r.Method == http.MethodGet && id == "":
		out := make([]api.Entry, 0, len(s.entries))
		for _, e := range s.entries {
			out = append(out, e)
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodGet:
		e, ok := s.entries[id]
		if !ok {
			notFound(w)
			return
		}
		_ = json.NewEncoder(w).Encode(e)
	case r.Method == http.MethodPost:
		var e api.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.seq++
		e.ID = fmt.Sprintf("n%d", s.seq)
		s.entries[e.ID] = e
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(e)
	case r.Method == http.MethodPut:
		if _, ok := s.entries[id]; !ok {
			notFound(w)
			return
		}
		var e api.Entry
		_ = json.NewDecoder(r.Body).Decode(&e)
		s.entries[id] = e
		_ = json.NewEncoder(w).Encode(e)
	case r.Method == http.MethodDelete:
		delete(s.entries, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *codeServer) serveGroups(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		out := make([]api.Group, 0, len(s.groups))
		for _, g := range s.groups {
			out = append(out, g)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		_ = json.NewEncoder(w).Encode(out)
	case len(rest) == 0 && r.Method == http.MethodPost:
		var g api.Group
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.seq++
		g.ID = fmt.Sprintf("g%d", s.seq)
		s.groups[g.ID] = g
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(g)
	case len(rest) == 1 && r.Method == http.MethodPut:
		if _, ok := s.groups[rest[0]]; !ok {
			notFound(w)
			return
		}
		var g api.Group
		_ = json.NewDecoder(r.Body).Decode(&g)
		s.groups[rest[0]] = g
		_ = json.NewEncoder(w).Encode(g)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		delete(s.groups, rest[0])
		for id, e := range s.entries {
			if e.GroupID == rest[0] {
				delete(s.entries, id)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case len(rest) == 2 && rest[1] == "entries" && r.Method == http.MethodGet:
		if _, ok := s.groups[rest[0]]; !ok {
			notFound(w)
			return
		}
		out := []api.Entry{}
		for _, e := range s.entries {
			if e.GroupID == rest[0] {
				out = append(out, e)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case len(rest) == 2 && rest[1] == "entries" && r.Method == http.MethodPost:
		var e api.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.seq++
		e.ID = fmt.Sprintf("n%d", s.seq)
		e.GroupID = rest[0]
		s.entries[e.ID] = e
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(e)
	default:
		notFound(w)
	}
}

func (s *codeServer) group(id string) (api.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	return g, ok
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
}

func (s *codeServer) entry(id string) (api.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *codeServer) findByTitle(title string) (api.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Title == title {
			return e, true
		}
	}
	return api.Entry{}, false
}

// writeConfig writes a config file pointing at url and returns its path.
func writeConfig(t *testing.T, url string) string {
	t.Helper()
	for _, k := range []string{"OTPDASH_SERVER", "OTPDASH_THEME", "OTPDASH_LANG", "OTPDASH_CONFIG"} {
		t.Setenv(k, "")
	}
	// stdout is never a terminal under go test
	t.Setenv("OTPDASH_OUTPUT_FORMAT", "text")
	path := filepath.Join(t.TempDir(), "config.toml")
	data := fmt.Sprintf(`[server]
url = %q
timeout = "5s"

[ui]
theme = "plain"

[notifications]
enabled = false
`, url)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// run executes a fresh command tree and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type fakeCopier struct {
	mu     sync.Mutex
	copied []string
	err    error
}

func (c *fakeCopier) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.copied = append(c.copied, text)
	return nil
}

func useCopier(t *testing.T, c codes.Copier) {
	t.Helper()
	prev := newCopier
	newCopier = func(logging.Logger) codes.Copier { return c }
	t.Cleanup(func() { newCopier = prev })
}

func cliCode(err error) string {
	var ce *output.CLIError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return output.FromError(err).Code
}

func TestExecuteHelp(t *testing.T) {
	if _, err := run(t, "", "--help"); err != nil {
		t.Fatalf("Execute() with --help failed: %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default version", []string{"version"}, "otpdash version dev"},
		{"short version", []string{"version", "--short"}, "dev\n"},
		{"json version", []string{"version", "--json"}, `"version": "dev"`},
	}
	t.Setenv("OTPDASH_OUTPUT_FORMAT", "text")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			if err != nil {
				t.Fatalf("version failed: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func decodeList(t *testing.T, out string) listResponse {
	t.Helper()
	var resp listResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	return resp
}

func TestListJSON(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "--json", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	resp := decodeList(t, out)
	if resp.Mode != "per-entry" {
		t.Errorf("mode = %q", resp.Mode)
	}
	got := map[string]listItem{}
	for _, it := range resp.Codes {
		got[it.ID] = it
	}
	if len(got) != 2 {
		t.Fatalf("want the two entries with codes, got %+v", resp.Codes)
	}
	if got["gh"].Code != "123456" || got["gh"].Window != 30 {
		t.Errorf("gh = %+v", got["gh"])
	}
	if r := got["gh"].Remaining; r < 19 || r > 20 {
		t.Errorf("gh remaining = %d, want about 20", r)
	}
	if got["gh"].NextRefresh == "" {
		t.Error("gh should report its next refresh")
	}
	if _, ok := got["wiki"]; ok {
		t.Error("entries without codes are not listed")
	}
}

func TestListText(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"NAME", "CODE", "GitHub", "123 456", "Mail", "654 321", "octo"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestRootWithoutTerminalPrintsList(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath)
	if err != nil {
		t.Fatalf("root failed: %v", err)
	}
	if !strings.Contains(out, "123 456") {
		t.Errorf("root without a terminal should list codes:\n%s", out)
	}
}

func TestListBatchMode(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "--json", "list", "--mode", "batch")
	if err != nil {
		t.Fatalf("list --mode batch failed: %v", err)
	}
	resp := decodeList(t, out)
	if resp.Mode != "batch" {
		t.Errorf("mode = %q", resp.Mode)
	}
	codesByTitle := map[string]string{}
	for _, it := range resp.Codes {
		codesByTitle[it.Title] = it.Code
	}
	if codesByTitle["GitHub"] != "123456" || codesByTitle["Mail"] != "654321" {
		t.Errorf("batch codes = %v", codesByTitle)
	}
}

func TestListRejectsUnknownMode(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	_, err := run(t, "", "--config", cfgPath, "list", "--mode", "sometimes")
	if cliCode(err) != "INVALID_FLAG" {
		t.Fatalf("err = %v, want INVALID_FLAG", err)
	}
}

func TestListServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	cfgPath := writeConfig(t, url)

	_, err := run(t, "", "--config", cfgPath, "--json", "list", "--mode", "batch")
	if err == nil {
		t.Fatal("list against a closed server should fail")
	}
	if code := cliCode(err); code != "SERVER_UNREACHABLE" {
		t.Errorf("code = %q, want SERVER_UNREACHABLE (err %v)", code, err)
	}
}

func TestShowMasksSecrets(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "--json", "show", "gh")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	var resp showResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "123456" {
		t.Errorf("code = %q", resp.Code)
	}
	if strings.Contains(out, "JBSWY3DPEHPK3PXP") || strings.Contains(out, "hunter2") {
		t.Errorf("secrets leaked without --reveal:\n%s", out)
	}
	if resp.QRCode != "" {
		t.Error("QR code should be withheld while masked")
	}

	out, err = run(t, "", "--config", cfgPath, "--json", "show", "gh", "--reveal")
	if err != nil {
		t.Fatalf("show --reveal failed: %v", err)
	}
	if !strings.Contains(out, "JBSWY3DPEHPK3PXP") || !strings.Contains(out, "hunter2") {
		t.Errorf("--reveal should show secrets:\n%s", out)
	}
}

func TestShowText(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "show", "github")
	if err != nil {
		t.Fatalf("show by title failed: %v", err)
	}
	for _, want := range []string{"GitHub", "octo", "123 456", "Recovery codes"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestShowUnknownEntry(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	_, err := run(t, "", "--config", cfgPath, "show", "nope")
	if cliCode(err) != "ENTRY_NOT_FOUND" {
		t.Fatalf("err = %v, want ENTRY_NOT_FOUND", err)
	}
}

func TestCopy(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)
	cp := &fakeCopier{}
	useCopier(t, cp)

	out, err := run(t, "", "--config", cfgPath, "copy", "gh")
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if len(cp.copied) != 1 || cp.copied[0] != "123456" {
		t.Errorf("copied = %v", cp.copied)
	}
	if !strings.Contains(out, "Copied!") {
		t.Errorf("copy output = %q", out)
	}

	if _, err := run(t, "", "--config", cfgPath, "copy", "gh", "--secret"); err != nil {
		t.Fatalf("copy --secret failed: %v", err)
	}
	if cp.copied[len(cp.copied)-1] != "JBSWY3DPEHPK3PXP" {
		t.Errorf("copied = %v", cp.copied)
	}
}

func TestCopyFailures(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)
	useCopier(t, &fakeCopier{err: errors.New("no display")})

	_, err := run(t, "", "--config", cfgPath, "copy", "gh")
	if cliCode(err) != "CLIPBOARD_ERROR" {
		t.Errorf("err = %v, want CLIPBOARD_ERROR", err)
	}

	_, err = run(t, "", "--config", cfgPath, "copy", "wiki")
	if cliCode(err) != "NO_CODE" {
		t.Errorf("err = %v, want NO_CODE", err)
	}
}

func TestEntryLifecycle(t *testing.T) {
	s, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "s3cret\n", "--config", cfgPath, "entry", "add",
		"--title", "Bank", "--totp-secret", "jbsw y3dp", "--field", "pin=1234", "--password-stdin")
	if err != nil {
		t.Fatalf("entry add failed: %v", err)
	}
	if !strings.Contains(out, "Entry created") {
		t.Errorf("add output = %q", out)
	}
	created, ok := s.findByTitle("Bank")
	if !ok {
		t.Fatal("entry was not stored")
	}
	if !created.HaveTOTP || created.TOTPToken != "JBSWY3DP" {
		t.Errorf("totp = %v %q", created.HaveTOTP, created.TOTPToken)
	}
	if created.Password != "s3cret" {
		t.Errorf("password = %q", created.Password)
	}
	if len(created.CustomFields) != 1 || created.CustomFields[0] != (api.CustomField{Name: "pin", Value: "1234"}) {
		t.Errorf("fields = %+v", created.CustomFields)
	}

	out, err = run(t, "", "--config", cfgPath, "entry", "edit", created.ID, "--username", "alice", "--field", "pin=9999", "--dry-run")
	if err != nil {
		t.Fatalf("edit --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "+ username: alice") {
		t.Errorf("dry run should list the new username:\n%s", out)
	}
	if !strings.Contains(out, "~ field:pin: ") {
		t.Errorf("dry run should diff the changed field:\n%s", out)
	}
	if e, _ := s.entry(created.ID); e.Username != "" {
		t.Fatal("dry run must not save")
	}

	if _, err := run(t, "", "--config", cfgPath, "entry", "edit", created.ID, "--username", "alice"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if e, _ := s.entry(created.ID); e.Username != "alice" || e.TOTPToken != "JBSWY3DP" {
		t.Errorf("after edit = %+v", e)
	}

	out, err = run(t, "", "--config", cfgPath, "--json", "entry", "ls")
	if err != nil {
		t.Fatalf("entry ls failed: %v", err)
	}
	if strings.Contains(out, "s3cret") || strings.Contains(out, "JBSWY3DP") {
		t.Errorf("entry ls leaks secrets:\n%s", out)
	}
	var list []entrySummary
	if err := json.Unmarshal([]byte(out), &list); err != nil || len(list) != 4 {
		t.Fatalf("entry ls = %v, %v", list, err)
	}

	if _, err := run(t, "", "--config", cfgPath, "entry", "rm", "Bank", "--yes"); err != nil {
		t.Fatalf("entry rm failed: %v", err)
	}
	if _, ok := s.entry(created.ID); ok {
		t.Error("entry still stored after rm")
	}
}

func TestEntryAddValidation(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"bad secret", []string{"--title", "x", "--totp-secret", "not base32!"}, "INVALID_SECRET"},
		{"missing title", []string{"--username", "x"}, "INVALID_ENTRY"},
		{"bad field", []string{"--title", "x", "--field", "novalue"}, "INVALID_FLAG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "entry", "add"}, tt.args...)
			_, err := run(t, "", args...)
			if got := cliCode(err); got != tt.code {
				t.Errorf("err = %v (code %q), want %s", err, got, tt.code)
			}
		})
	}
}

func TestEntryRemoveNeedsConfirmation(t *testing.T) {
	s, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	_, err := run(t, "y\n", "--config", cfgPath, "entry", "rm", "gh")
	if cliCode(err) != "CONFIRMATION_REQUIRED" {
		t.Fatalf("err = %v, want CONFIRMATION_REQUIRED", err)
	}
	if _, ok := s.entry("gh"); !ok {
		t.Error("entry removed without confirmation")
	}
}

func TestListGroupScope(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "--json", "list", "--group", "work")
	if err != nil {
		t.Fatalf("list --group failed: %v", err)
	}
	resp := decodeList(t, out)
	if len(resp.Codes) != 1 || resp.Codes[0].ID != "gh" {
		t.Errorf("work group codes = %+v, want only gh", resp.Codes)
	}

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown group", []string{"list", "--group", "travel"}, "GROUP_NOT_FOUND"},
		{"batch mode", []string{"list", "--mode", "batch", "--group", "work"}, "INVALID_FLAG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", append([]string{"--config", cfgPath}, tt.args...)...)
			if got := cliCode(err); got != tt.code {
				t.Errorf("err = %v (code %q), want %s", err, got, tt.code)
			}
		})
	}
}

func TestEntryGroupLifecycle(t *testing.T) {
	s, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "entry", "group", "add", "Travel", "--description", "trips")
	if err != nil {
		t.Fatalf("group add failed: %v", err)
	}
	if !strings.Contains(out, "Group created: Travel") {
		t.Errorf("group add output = %q", out)
	}

	out, err = run(t, "", "--config", cfgPath, "--group", "travel", "entry", "add",
		"--title", "Airline", "--generate-password", "--length", "20")
	if err != nil {
		t.Fatalf("entry add --group failed: %v", err)
	}
	if !strings.Contains(out, "Password generated: "+strings.Repeat("x", 20)) {
		t.Errorf("add output should show the generated password:\n%s", out)
	}
	airline, ok := s.findByTitle("Airline")
	if !ok {
		t.Fatal("entry was not stored")
	}
	if airline.Password != strings.Repeat("x", 20) {
		t.Errorf("password = %q", airline.Password)
	}
	travel, ok := s.group(airline.GroupID)
	if !ok || travel.Name != "Travel" {
		t.Fatalf("entry group = %q (%+v)", airline.GroupID, travel)
	}

	out, err = run(t, "", "--config", cfgPath, "--json", "entry", "group", "ls")
	if err != nil {
		t.Fatalf("group ls failed: %v", err)
	}
	var groups []groupSummary
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatalf("group ls output is not JSON: %v\n%s", err, out)
	}
	counts := map[string]int{}
	for _, g := range groups {
		counts[g.Name] = g.Entries
	}
	if counts["Travel"] != 1 || counts["Work"] != 2 {
		t.Errorf("group counts = %v", counts)
	}

	out, err = run(t, "", "--config", cfgPath, "--json", "--group", "Travel", "entry", "ls")
	if err != nil {
		t.Fatalf("entry ls --group failed: %v", err)
	}
	var list []entrySummary
	if err := json.Unmarshal([]byte(out), &list); err != nil || len(list) != 1 || list[0].Title != "Airline" {
		t.Fatalf("entry ls --group = %v, %v", list, err)
	}

	if _, err := run(t, "y\n", "--config", cfgPath, "entry", "group", "rm", "travel"); cliCode(err) != "CONFIRMATION_REQUIRED" {
		t.Fatalf("err = %v, want CONFIRMATION_REQUIRED", err)
	}
	if _, err := run(t, "", "--config", cfgPath, "entry", "group", "rm", "travel", "--yes"); err != nil {
		t.Fatalf("group rm failed: %v", err)
	}
	if _, ok := s.group(travel.ID); ok {
		t.Error("group still stored after rm")
	}
	if _, ok := s.entry(airline.ID); ok {
		t.Error("the group's entries are deleted with it")
	}
	if _, ok := s.entry("gh"); !ok {
		t.Error("entries of other groups are kept")
	}
}

func TestEntryEditGeneratesPassword(t *testing.T) {
	s, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "entry", "edit", "gh", "--generate-password")
	if err != nil {
		t.Fatalf("edit --generate-password failed: %v", err)
	}
	if !strings.Contains(out, "~ password: changed") {
		t.Errorf("edit output = %q", out)
	}
	if e, _ := s.entry("gh"); e.Password != strings.Repeat("x", api.DefaultPasswordLength) {
		t.Errorf("password = %q", e.Password)
	}

	_, err = run(t, "pw\n", "--config", cfgPath, "entry", "edit", "gh", "--generate-password", "--password-stdin")
	if err == nil {
		t.Error("--generate-password and --password-stdin are exclusive")
	}
}

func TestEntryGenerate(t *testing.T) {
	_, srv := newCodeServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "entry", "generate", "--length", "12")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if strings.TrimSpace(out) != strings.Repeat("x", 12) {
		t.Errorf("generate output = %q", out)
	}

	_, err = run(t, "", "--config", cfgPath, "entry", "generate", "--length", "4")
	if cliCode(err) != "INVALID_FLAG" {
		t.Errorf("err = %v, want INVALID_FLAG", err)
	}
}

func TestConfigCommands(t *testing.T) {
	writeConfig(t, "http://127.0.0.1:1")
	path := filepath.Join(t.TempDir(), "sub", "otpdash.toml")

	out, err := run(t, "", "--config", path, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("config path = %q, want %q", out, path)
	}

	if _, err := run(t, "", "--config", path, "config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	_, err = run(t, "", "--config", path, "config", "init")
	if cliCode(err) != "CONFIG_EXISTS" {
		t.Errorf("second init err = %v, want CONFIG_EXISTS", err)
	}

	out, err = run(t, "", "--config", path, "--server", "http://example.test", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "http://example.test") {
		t.Errorf("config show should reflect --server:\n%s", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	if err := os.WriteFile(path, []byte("[refresh]\nmode = \"sometimes\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "", "--config", path, "list")
	if cliCode(err) != "CONFIG_INVALID" {
		t.Fatalf("err = %v, want CONFIG_INVALID", err)
	}
}
