package statuscmder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/papercomputeco/brainstream/cmd/brainstream/status"
)

const stateBody = `{
  "connected": true,
  "last_frame_at": "2026-01-02T15:04:05Z",
  "derived": {"score": 0.82, "has_score": true, "active_agent": "planner", "brain_state": "thinking"},
  "thoughts": [{"text": "weighing the second plan", "received_at": "2026-01-02T15:04:05Z"}],
  "frames": [],
  "total": 340,
  "capacity": 50,
  "state": "open",
  "stale": false
}`

const healthBody = `{"status": "ok", "version": "1.4.2", "source": "live", "placeholder": false, "checked_at": "2026-01-02T15:04:05Z"}`

var _ = Describe("NewStatusCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Use).To(Equal("status"))
	})

	It("accepts zero arguments", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
	})

	It("rejects any arguments", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("registers the api-target flag", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Flags().Lookup("api-target")).NotTo(BeNil())
	})
})

var _ = Describe("Status command execution", func() {
	var (
		out        *bytes.Buffer
		healthCode int
		stateCode  int
		server     *httptest.Server
	)

	run := func() error {
		cmd := statuscmder.NewStatusCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs([]string{"--api-target", server.URL})
		return cmd.Execute()
	}

	BeforeEach(func() {
		tmpDir := GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".brainstream"), 0o755)).To(Succeed())
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)

		out = &bytes.Buffer{}
		stateCode = http.StatusOK
		healthCode = http.StatusOK

		mux := http.NewServeMux()
		mux.HandleFunc("/state", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(stateCode)
			_, _ = w.Write([]byte(stateBody))
		})
		mux.HandleFunc("/brain/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(healthCode)
			_, _ = w.Write([]byte(healthBody))
		})
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)
	})

	It("prints the session state and brain health", func() {
		Expect(run()).To(Succeed())

		text := out.String()
		Expect(text).To(ContainSubstring("open"))
		Expect(text).To(ContainSubstring("0 of 50"))
		Expect(text).To(ContainSubstring("340 total"))
		Expect(text).To(ContainSubstring("0.82"))
		Expect(text).To(ContainSubstring("planner"))
		Expect(text).To(ContainSubstring("thinking"))
		Expect(text).To(ContainSubstring("1.4.2"))
		Expect(text).To(ContainSubstring("weighing the second plan"))
	})

	It("falls back to an unknown brain when the health check fails", func() {
		healthCode = http.StatusInternalServerError

		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("unknown"))
		Expect(out.String()).To(ContainSubstring("fallback"))
	})

	It("fails when the API server does not answer with a state", func() {
		stateCode = http.StatusServiceUnavailable

		Expect(run()).To(MatchError(ContainSubstring("fetching state")))
	})
})
