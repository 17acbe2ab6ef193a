package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv runs the CLI in-process against temporary directories.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
	token     string
	added     int
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	return &testEnv{
		t:         t,
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

func (e *testEnv) run(stdin string, args ...string) result {
	e.t.Helper()
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	if e.token != "" {
		full = append(full, "--token", e.token)
	}
	var out, errOut bytes.Buffer
	code := Run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run("", args...)
	require.Equal(e.t, exitSuccess, r.code, "backoffice %v: %s", args, r.stderr)
	return r
}

func parseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

type listResult struct {
	Rows      []map[string]any `json:"rows"`
	Page      int              `json:"page"`
	PageCount int              `json:"page_count"`
	PageSize  int              `json:"page_size"`
	Filtered  int              `json:"filtered"`
	Total     int              `json:"total"`
}

// addEmployee adds an employee and returns its id. Each one starts a month
// earlier than the last, so the default newest-first order is insertion
// order.
func (e *testEnv) addEmployee(name, number, arrangement string) string {
	e.t.Helper()
	e.added++
	start := fmt.Sprintf("2024-%02d-01", 13-e.added)
	body := `{"name":"` + name + `","number":"` + number + `","position":"Engineer","arrangement":"` + arrangement + `","start_date":"` + start + `"}`
	r := e.mustRun("--json", "add", "employees", body)
	row := parseJSON[map[string]any](e.t, r.stdout)
	id, _ := row["id"].(string)
	require.NotEmpty(e.t, id)
	return id
}

func (e *testEnv) list(args ...string) listResult {
	e.t.Helper()
	r := e.mustRun(append([]string{"--json", "list"}, args...)...)
	return parseJSON[listResult](e.t, r.stdout)
}

func names(rows []map[string]any) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["name"].(string)
	}
	return out
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("version")
	assert.Contains(t, r.stdout, "backoffice v")

	// version does not touch the config directory
	_, err := os.Stat(env.configDir)
	assert.True(t, os.IsNotExist(err))
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("init")
	assert.Contains(t, r.stdout, "initialized successfully")

	for _, p := range []string{
		filepath.Join(env.configDir, configFileExt),
		env.dataDir,
		filepath.Join(env.dataDir, "blobs"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	// init is repeatable and keeps the config
	cfg := filepath.Join(env.configDir, configFileExt)
	require.NoError(t, os.WriteFile(cfg, []byte("page_size: 3\n"), 0o644))
	env.mustRun("init")
	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "page_size: 3\n", string(data))
}

func TestAddListUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")

	ada := env.addEmployee("Ada", "E-1", "remote")
	bob := env.addEmployee("Bob", "E-2", "onsite")
	cy := env.addEmployee("Cy", "E-3", "hybrid")

	got := env.list("employees")
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, []string{"Ada", "Bob", "Cy"}, names(got.Rows))
	assert.Equal(t, "pending", got.Rows[0]["status"])

	got = env.list("employees", "--search", "BO")
	assert.Equal(t, []string{"Bob"}, names(got.Rows))
	assert.Equal(t, 1, got.Filtered)
	assert.Equal(t, 3, got.Total)

	got = env.list("employees", "--type", "remote,hybrid", "--sort", "name", "--desc")
	assert.Equal(t, []string{"Cy", "Ada"}, names(got.Rows))

	got = env.list("employees", "--page-size", "2", "--page", "2")
	assert.Equal(t, []string{"Cy"}, names(got.Rows))
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 2, got.PageCount)

	env.mustRun("update", "employees", ada, `{"status":"Active","position":"Lead"}`)
	got = env.list("employees", "--search", "ada")
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "Active", got.Rows[0]["status"])
	assert.Equal(t, "Lead", got.Rows[0]["position"])
	assert.Equal(t, "E-1", got.Rows[0]["number"])

	r := env.mustRun("delete", "employees", bob, cy)
	assert.Contains(t, r.stdout, "Deleted employees/"+bob)
	got = env.list("employees")
	assert.Equal(t, []string{"Ada"}, names(got.Rows))

	// deleting a row that is already gone succeeds
	env.mustRun("delete", "employees", bob)
}

func TestAddFromStdin(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")

	r := env.run(`{"name":"Acme","category":"seta","contact":"Jo","email":"jo@acme.test"}`, "add", "stakeholders", "-")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Added stakeholders/")

	r = env.run("", "add", "stakeholders", "-")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "no input on stdin")
}

func TestUserErrors(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing required field", []string{"add", "employees", `{"number":"E-1","position":"x","arrangement":"remote","start_date":"2024-01-01"}`}, "name is required"},
		{"unknown field", []string{"add", "employees", `{"nickname":"x"}`}, "nickname"},
		{"unknown collection", []string{"list", "widgets"}, "widgets"},
		{"documents are not editable", []string{"add", "documents", `{}`}, "documents"},
		{"update missing record", []string{"update", "employees", "nope", `{"name":"x"}`}, "not found"},
		{"sort by unknown column", []string{"list", "employees", "--sort", "salary"}, "salary"},
		{"bad page size", []string{"list", "employees", "--page-size", "0"}, "page size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := env.run("", tt.args...)
			assert.Equal(t, exitUserError, r.code, r.stderr)
			assert.Contains(t, r.stderr, tt.want)
		})
	}
}

func TestCopyStdout(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")
	id := env.addEmployee("Ada", "E-42", "remote")

	r := env.mustRun("copy", "employees", id, "--stdout")
	assert.Equal(t, "E-42", strings.TrimSpace(r.stdout))

	r = env.run("", "copy", "employees", "missing", "--stdout")
	assert.Equal(t, exitUserError, r.code)
}

func TestReorder(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")
	a := env.addEmployee("Ada", "E-1", "remote")
	b := env.addEmployee("Bob", "E-2", "remote")
	c := env.addEmployee("Cy", "E-3", "remote")

	r := env.mustRun("--json", "reorder", "employees", c, a)
	out := parseJSON[struct {
		Order []string `json:"order"`
	}](t, r.stdout)
	assert.Equal(t, []string{c, a, b}, out.Order)

	// the order survives a new run
	assert.Equal(t, []string{"Cy", "Ada", "Bob"}, names(env.list("employees").Rows))

	r = env.mustRun("reorder", "employees", a, a)
	assert.Contains(t, r.stdout, "Nothing to move")

	r = env.run("", "reorder", "documents", a, b)
	assert.Equal(t, exitUserError, r.code)
}

func TestCount(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")
	env.addEmployee("Ada", "E-1", "remote")
	env.addEmployee("Bob", "E-2", "remote")

	r := env.mustRun("--json", "count")
	counts := parseJSON[map[string]int](t, r.stdout)
	assert.Equal(t, 2, counts["employees"])
	assert.Equal(t, 0, counts["students"])
	assert.Contains(t, counts, "documents")

	r = env.mustRun("--json", "count", "employees")
	assert.Equal(t, map[string]int{"employees": 2}, parseJSON[map[string]int](t, r.stdout))
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")
	ada := env.addEmployee("Ada", "E-1", "remote")
	env.addEmployee("Bob", "E-2", "onsite")

	file := filepath.Join(t.TempDir(), "employees.jsonl")
	r := env.mustRun("export", "employees", "--out", file)
	assert.Contains(t, r.stdout, "Exported 2 employees")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)

	env.mustRun("delete", "employees", ada)
	assert.Equal(t, 1, env.list("employees").Total)

	r = env.mustRun("import", "employees", file)
	assert.Contains(t, r.stdout, "Imported 2 employees")
	got := env.list("employees", "--sort", "name")
	assert.Equal(t, []string{"Ada", "Bob"}, names(got.Rows))
	assert.Equal(t, ada, got.Rows[0]["id"])
}

func TestImportRejectsInvalidLine(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")

	file := filepath.Join(t.TempDir(), "in.jsonl")
	content := `{"name":"Ada","number":"E-1","position":"Engineer","arrangement":"remote","start_date":"2024-01-15"}
{"name":"Bob","number":"E-2","position":"Engineer","arrangement":"moon","start_date":"2024-01-15"}
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	r := env.run("", "import", "employees", file)
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "line 2")
	assert.Equal(t, 0, env.list("employees").Total)
}

func TestImportRejectsMalformedLine(t *testing.T) {
	tests := map[string]struct {
		content string
		line    string
	}{
		"truncated middle line": {
			content: `{"name":"Ada","number":"E-1","position":"Engineer","arrangement":"remote","start_date":"2024-01-15"}
{"name":"Bob","number":"E-2",
{"name":"Cy","number":"E-3","position":"Engineer","arrangement":"onsite","start_date":"2024-01-15"}
`,
			line: "line 2",
		},
		"invalid value after blank line": {
			content: `{"name":"Ada","number":"E-1","position":"Engineer","arrangement":"remote","start_date":"2024-01-15"}

{"name":"Bob","number":"E-2","position":"Engineer","arrangement":"moon","start_date":"2024-01-15"}
`,
			line: "line 3",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.mustRun("init")

			file := filepath.Join(t.TempDir(), "in.jsonl")
			require.NoError(t, os.WriteFile(file, []byte(tt.content), 0o644))

			r := env.run("", "import", "employees", file)
			assert.NotEqual(t, exitSuccess, r.code)
			assert.Contains(t, r.stderr, tt.line)
			assert.Equal(t, 0, env.list("employees").Total)
		})
	}
}

func TestDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")

	src := t.TempDir()
	report := filepath.Join(src, "report.pdf")
	notes := filepath.Join(src, "notes.txt")
	require.NoError(t, os.WriteFile(report, []byte("%PDF-1.4 report"), 0o644))
	require.NoError(t, os.WriteFile(notes, []byte("some notes"), 0o644))

	r := env.mustRun("--json", "docs", "upload", report, notes)
	uploaded := parseJSON[[]map[string]any](t, r.stdout)
	require.Len(t, uploaded, 2)
	reportPath, _ := uploaded[0]["path"].(string)
	assert.True(t, strings.HasPrefix(reportPath, "uploads/"), reportPath)
	assert.True(t, strings.HasSuffix(reportPath, "-report.pdf"), reportPath)

	got := env.list("documents", "--type", "pdf")
	require.Len(t, got.Rows, 1)
	assert.Equal(t, reportPath, got.Rows[0]["id"])
	assert.Equal(t, 2, got.Total)

	r = env.mustRun("docs", "url", reportPath)
	assert.Contains(t, r.stdout, "report.pdf")

	env.mustRun("docs", "rm", reportPath)
	assert.Equal(t, 1, env.list("documents").Total)

	r = env.run("", "docs", "rm", reportPath)
	assert.Equal(t, exitUserError, r.code)

	r = env.run("", "docs", "url", "../etc/passwd")
	assert.Equal(t, exitUserError, r.code)
}

func TestConfigOverrides(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")
	for _, n := range []string{"1", "2", "3"} {
		env.addEmployee("P"+n, "E-"+n, "remote")
	}

	assert.Equal(t, 10, env.list("employees").PageSize)

	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, ".env"), []byte("BACKOFFICE_PAGE_SIZE=2\n"), 0o644))
	got := env.list("employees")
	assert.Equal(t, 2, got.PageSize)
	assert.Equal(t, 2, got.PageCount)

	t.Setenv("BACKOFFICE_PAGE_SIZE", "1")
	assert.Equal(t, 1, env.list("employees").PageSize)
}

func TestTokenAndRoleGate(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")

	r := env.run("", "token", "--user", "ada")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "auth_secret")

	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, ".env"), []byte("BACKOFFICE_AUTH_SECRET=s3cret\n"), 0o644))

	r = env.run("", "list", "employees")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "not signed in")

	userToken := strings.TrimSpace(env.mustRun("token", "--user", "bob", "--role", "user").stdout)
	adminToken := strings.TrimSpace(env.mustRun("token", "--user", "ada", "--role", "admin").stdout)

	file := filepath.Join(t.TempDir(), "in.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(`{"name":"Ada","number":"E-1","position":"Engineer","arrangement":"remote","start_date":"2024-01-15"}`+"\n"), 0o644))

	env.token = userToken
	env.mustRun("list", "employees")
	r = env.run("", "import", "employees", file)
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "role not permitted")

	env.token = adminToken
	env.mustRun("import", "employees", file)
	assert.Equal(t, 1, env.list("employees").Total)

	env.token = "garbage"
	r = env.run("", "list", "employees")
	assert.Equal(t, exitUserError, r.code)

	r = env.run("", "token", "--user", "x", "--role", "root")
	assert.Equal(t, exitUserError, r.code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitSysError, exitCode(sysError(os.ErrPermission)))
	assert.Equal(t, exitUserError, exitCode(os.ErrNotExist))
	assert.Nil(t, sysError(nil))
}
