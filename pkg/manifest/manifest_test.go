package manifest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/manifest"
)

var _ = Describe("LoadOrDefault", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns the default layout for an empty path", func() {
		res, err := manifest.LoadOrDefault("")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Found).To(BeFalse())
		Expect(res.Manifest).To(Equal(manifest.Default()))
	})

	It("treats a missing file as a normal outcome", func() {
		path := filepath.Join(dir, manifest.FileName)
		res, err := manifest.LoadOrDefault(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Found).To(BeFalse())
		Expect(res.Path).To(Equal(path))
		Expect(res.Manifest.Widgets).NotTo(BeEmpty())
	})

	It("loads a manifest from disk", func() {
		path := filepath.Join(dir, manifest.FileName)
		Expect(os.WriteFile(path, []byte(`{
			"title": "lab",
			"widgets": [
				{"id": "t", "component": "thoughts", "limit": 5},
				{"id": "x", "component": "sparkline"}
			]
		}`), 0o600)).To(Succeed())

		res, err := manifest.LoadOrDefault(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Found).To(BeTrue())
		Expect(res.Manifest.Title).To(Equal("lab"))
		Expect(res.Manifest.Version).To(Equal(manifest.CurrentVersion))
		Expect(res.Manifest.Widgets).To(HaveLen(2))
		Expect(res.Manifest.Widgets[0].Kind()).To(Equal(manifest.WidgetThoughts))
		Expect(res.Manifest.Widgets[1].Kind()).To(Equal(manifest.WidgetUnknown))
	})

	It("fails on malformed JSON", func() {
		path := filepath.Join(dir, manifest.FileName)
		Expect(os.WriteFile(path, []byte(`{"widgets":`), 0o600)).To(Succeed())

		_, err := manifest.LoadOrDefault(path)
		Expect(errors.Is(err, manifest.ErrMalformed)).To(BeTrue())
	})

	It("rejects duplicate widget ids", func() {
		_, err := manifest.Parse([]byte(`{"widgets":[{"id":"a","component":"score"},{"id":"a","component":"agent"}]}`))
		Expect(err).To(MatchError(ContainSubstring("duplicate widget id")))
	})

	DescribeTable("widget kinds",
		func(name string, kind manifest.WidgetKind) {
			Expect(manifest.ParseWidgetKind(name)).To(Equal(kind))
			if kind != manifest.WidgetUnknown {
				Expect(kind.String()).To(Equal(name))
			}
		},
		Entry("thoughts", "thoughts", manifest.WidgetThoughts),
		Entry("score", "score", manifest.WidgetScore),
		Entry("brain state", "brain_state", manifest.WidgetBrainState),
		Entry("unknown component", "pie", manifest.WidgetUnknown),
	)
})

var _ = Describe("Watch", func() {
	It("reports the initial manifest and reloads on write", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, manifest.FileName)

		var mu sync.Mutex
		var titles []string
		record := func(res manifest.Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				titles = append(titles, "error")
				return
			}
			titles = append(titles, res.Manifest.Title)
		}
		latest := func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), titles...)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- manifest.Watch(ctx, path, record) }()

		Eventually(latest).Should(Equal([]string{"brainstream"}))

		Expect(os.WriteFile(path, []byte(`{"title":"updated"}`), 0o600)).To(Succeed())
		Eventually(latest).Should(ContainElement("updated"))

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("refuses an empty path", func() {
		Expect(manifest.Watch(context.Background(), "", func(manifest.Result, error) {})).NotTo(Succeed())
	})
})
