package eventstream_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
)

func TestEventstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Eventstream Suite")
}

var _ = Describe("BrainEvent", func() {
	It("marshals file events with expected keys", func() {
		event := eventstream.NewFileIngested("acme", "intro.txt", 1, 3)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("brain_name", "acme"))
		Expect(got).To(HaveKeyWithValue("file_name", "intro.txt"))
		Expect(got).To(HaveKeyWithValue("chunk_start", float64(1)))
		Expect(got).To(HaveKeyWithValue("chunk_end", float64(3)))
	})

	It("omits optional fields when unset", func() {
		event := eventstream.NewBrainDeleted("acme")

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).NotTo(HaveKey("file_name"))
		Expect(got).NotTo(HaveKey("renamed_to"))
		Expect(got).NotTo(HaveKey("question"))
	})

	It("assigns a unique event id per event", func() {
		a := eventstream.NewBrainCreated("acme")
		b := eventstream.NewBrainCreated("acme")
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.EventID).To(HavePrefix("evt_"))
	})

	It("carries both names on rename", func() {
		event := eventstream.NewBrainRenamed("acme", "globex")
		Expect(event.BrainName).To(Equal("acme"))
		Expect(event.RenamedTo).To(Equal("globex"))
		Expect(event.EventType).To(Equal(eventstream.EventTypeBrainRenamed))
	})
})
