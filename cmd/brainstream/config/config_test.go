package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/brainstream/cmd/brainstream/config"
	"github.com/papercomputeco/brainstream/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".brainstream"), 0o755)).To(Succeed())

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)

		out = &bytes.Buffer{}
	})

	Describe("set subcommand", func() {
		It("writes the value to the local config file", func() {
			Expect(run("set", "relay.upstream", "http://brain.lan:7777")).To(Succeed())

			cfger, err := config.NewConfiger("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfger.GetConfigValue("relay.upstream")).To(Equal("http://brain.lan:7777"))

			_, err = os.Stat(filepath.Join(tmpDir, ".brainstream", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports the previous value", func() {
			Expect(run("set", "tap.archive", "sqlite")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("was memory"))
		})

		It("rejects unknown keys", func() {
			Expect(run("set", "invalid_key", "value")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "relay.upstream")).NotTo(Succeed())
		})

		It("rejects zero arguments", func() {
			Expect(run("set")).NotTo(Succeed())
		})

		It("rejects invalid booleans", func() {
			Expect(run("set", "relay.proxy_keepalive", "sometimes")).NotTo(Succeed())
		})

		It("rejects invalid durations", func() {
			Expect(run("set", "relay.max_lifetime", "forever")).NotTo(Succeed())
		})

		It("rejects unknown archive drivers", func() {
			Expect(run("set", "tap.archive", "mongo")).NotTo(Succeed())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(run("set", "relay.upstream", "http://brain.lan:7777")).To(Succeed())
			out.Reset()

			Expect(run("get", "relay.upstream")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("http://brain.lan:7777"))
		})

		It("marks values that match the default", func() {
			Expect(run("get", "relay.max_lifetime")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("5m"))
			Expect(out.String()).To(ContainSubstring("(default)"))
		})

		It("shows unset keys as not set", func() {
			Expect(run("get", "tap.kafka_brokers")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).NotTo(Succeed())
		})

		It("requires exactly one argument", func() {
			Expect(run("get")).NotTo(Succeed())
		})
	})

	Describe("list subcommand", func() {
		It("lists every section when no config exists", func() {
			Expect(run("list")).To(Succeed())
			for _, section := range []string{"[relay]", "[api]", "[client]", "[store]", "[tap]", "[manifest]"} {
				Expect(out.String()).To(ContainSubstring(section))
			}
			Expect(out.String()).To(ContainSubstring("No config file found"))
		})

		It("shows values that were set", func() {
			Expect(run("set", "tap.kafka_topic", "brain.frames")).To(Succeed())
			out.Reset()

			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("brain.frames"))
			Expect(out.String()).To(ContainSubstring("config.toml"))
		})

		It("rejects any arguments", func() {
			Expect(run("list", "extra")).NotTo(Succeed())
		})
	})
})
