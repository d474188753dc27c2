package brainstreamcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	brainstreamcmder "github.com/papercomputeco/brainstream/cmd/brainstream"
)

var _ = Describe("NewBrainstreamCmd", func() {
	It("wires every top-level subcommand", func() {
		cmd := brainstreamcmder.NewBrainstreamCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "watch", "status", "init", "config", "version"))
	})

	It("declares the global flags", func() {
		cmd := brainstreamcmder.NewBrainstreamCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("resolves nested serve commands", func() {
		cmd := brainstreamcmder.NewBrainstreamCmd()
		sub, _, err := cmd.Find([]string{"serve", "relay"})
		Expect(err).NotTo(HaveOccurred())
		Expect(sub.Name()).To(Equal("relay"))
	})
})
