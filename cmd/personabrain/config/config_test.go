package configcmder

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/config"
)

func TestConfigCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Command Suite")
}

var _ = Describe("config command", func() {
	It("registers the get, set, and list subcommands", func() {
		cmd := NewConfigCmd()

		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("get", "set", "list"))
	})

	Describe("runSet and runGet", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("round-trips a value through the config file", func() {
			Expect(runSet("vector.driver", "qdrant", dir)).To(Succeed())

			cfger, err := config.NewConfiger(dir)
			Expect(err).NotTo(HaveOccurred())

			value, err := cfger.GetConfigValue("vector.driver")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("qdrant"))
		})

		It("rejects unknown keys", func() {
			Expect(runSet("nope.nope", "x", dir)).To(HaveOccurred())
			Expect(runGet("nope.nope", dir)).To(HaveOccurred())
		})

		It("lists without error on a fresh directory", func() {
			Expect(runList(dir)).To(Succeed())
		})
	})
})
