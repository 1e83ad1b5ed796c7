package upload

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-uploader/internal/receipt"
)

// mockUploader is a mock implementation of Uploader
type mockUploader struct {
	mu        sync.Mutex
	calls     int
	receipt   *receipt.Receipt
	err       error
	panicWith interface{}
	started   chan struct{} // closed when Upload is entered, if set
	release   chan struct{} // Upload waits for this, if set
}

func (m *mockUploader) Upload(ctx context.Context, file *File, requestID string) (*receipt.Receipt, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.started != nil {
		close(m.started)
	}
	if m.release != nil {
		<-m.release
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.receipt, nil
}

func (m *mockUploader) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockIDGenerator returns a fixed ID
type mockIDGenerator struct {
	id string
}

func (m *mockIDGenerator) Generate() string {
	return m.id
}

func mustDecode(body string) *receipt.Receipt {
	r, err := receipt.Decode([]byte(body))
	Expect(err).NotTo(HaveOccurred())
	return r
}

const groceryJSON = `{"store_name":"Corner Grocer","date":"2024-02-01",` +
	`"items":[{"description":"Cheese","quantity":3,"price":4.1666,"category":"dairy"},` +
	`{"description":"Chips","quantity":2,"price":2.50,"category":"snacks_and_drinks"}],` +
	`"subtotal":17.50,"tax":1.40,"total":18.90,` +
	`"categories_summary":{"dairy":{"count":1,"total":12.50},"snacks_and_drinks":{"count":1,"total":5.00}}}`

var _ = Describe("Controller", func() {
	var (
		uploader   *mockUploader
		controller *Controller
		file       *File
		err        error
	)

	BeforeEach(func() {
		uploader = &mockUploader{receipt: mustDecode(acmeJSON)}
		controller = NewControllerWithDeps(uploader, &mockIDGenerator{id: "req-1"})
		file = NewFile("receipt.png", "image/png", pngData)
	})

	It("should start idle", func() {
		state := controller.State()
		Expect(state.Phase).To(Equal(PhaseIdle))
		Expect(state.Err).To(BeEmpty())
		Expect(state.Receipt).To(BeNil())
	})

	Describe("Submit", func() {
		JustBeforeEach(func() {
			err = controller.Submit(context.Background(), file)
		})

		When("no file is selected", func() {
			BeforeEach(func() {
				file = nil
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should not call the service", func() {
				Expect(uploader.callCount()).To(Equal(0))
			})

			It("should not change state", func() {
				Expect(controller.State()).To(Equal(State{Phase: PhaseIdle}))
			})
		})

		When("the upload succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should call the service once", func() {
				Expect(uploader.callCount()).To(Equal(1))
			})

			It("should move to success with the receipt", func() {
				state := controller.State()
				Expect(state.Phase).To(Equal(PhaseSuccess))
				Expect(state.Err).To(BeEmpty())
				Expect(state.Receipt.StoreName).To(Equal("Acme Mart"))
			})

			It("should record the request id", func() {
				Expect(controller.State().RequestID).To(Equal("req-1"))
			})

			It("should record no discrepancies for a consistent receipt", func() {
				Expect(controller.State().Discrepancies).To(BeEmpty())
			})
		})

		When("the server rejects the upload", func() {
			BeforeEach(func() {
				uploader.err = &Error{Kind: KindRejected, Status: 500}
			})

			It("should return the error", func() {
				Expect(err).To(HaveOccurred())
			})

			It("should show the generic message", func() {
				state := controller.State()
				Expect(state.Phase).To(Equal(PhaseError))
				Expect(state.Err).To(Equal("Failed to upload receipt"))
			})

			It("should leave the receipt unset", func() {
				Expect(controller.State().Receipt).To(BeNil())
			})
		})

		When("the network fails", func() {
			BeforeEach(func() {
				uploader.err = &Error{Kind: KindTransport, Err: errors.New("network down")}
			})

			It("should show the underlying message", func() {
				state := controller.State()
				Expect(state.Phase).To(Equal(PhaseError))
				Expect(state.Err).To(Equal("network down"))
			})
		})

		When("the response is malformed", func() {
			BeforeEach(func() {
				_, decodeErr := receipt.Decode([]byte(`{"store_name":"Acme"}`))
				uploader.err = &Error{Kind: KindMalformed, Status: 200, Err: decodeErr}
			})

			It("should report it as an error", func() {
				state := controller.State()
				Expect(state.Phase).To(Equal(PhaseError))
				Expect(state.Err).To(HavePrefix("invalid receipt response:"))
				Expect(state.Receipt).To(BeNil())
			})
		})

		When("the service returns nothing", func() {
			BeforeEach(func() {
				uploader.receipt = nil
			})

			It("should report an error", func() {
				Expect(err).To(HaveOccurred())
				Expect(controller.State().Phase).To(Equal(PhaseError))
			})
		})

		When("the receipt is inconsistent", func() {
			BeforeEach(func() {
				r := mustDecode(acmeJSON)
				r.Total = r.Subtotal
				uploader.receipt = r
			})

			It("should still succeed", func() {
				Expect(controller.State().Phase).To(Equal(PhaseSuccess))
			})

			It("should record the discrepancy", func() {
				state := controller.State()
				Expect(state.Discrepancies).To(HaveLen(1))
				Expect(state.Discrepancies[0].Field).To(Equal("total"))
			})
		})

		When("the file is not an image", func() {
			BeforeEach(func() {
				file = NewFile("notes.txt", "text/plain", []byte("hello"))
			})

			It("should still send it", func() {
				Expect(uploader.callCount()).To(Equal(1))
				Expect(controller.State().Phase).To(Equal(PhaseSuccess))
			})
		})
	})

	Describe("Submit after a previous result", func() {
		BeforeEach(func() {
			uploader.receipt = mustDecode(groceryJSON)
			Expect(controller.Submit(context.Background(), file)).To(Succeed())
			Expect(controller.State().Receipt.CategoriesSummary).To(HaveLen(2))
		})

		When("the next upload succeeds", func() {
			It("should replace the receipt wholesale", func() {
				uploader.receipt = mustDecode(acmeJSON)
				Expect(controller.Submit(context.Background(), file)).To(Succeed())

				state := controller.State()
				Expect(state.Receipt.StoreName).To(Equal("Acme Mart"))
				Expect(state.Receipt.CategoriesSummary).To(HaveLen(1))
				_, stale := state.Receipt.CategoriesSummary.Get("snacks_and_drinks")
				Expect(stale).To(BeFalse())
			})
		})

		When("the next upload fails", func() {
			It("should keep the previous receipt and show the error", func() {
				uploader.err = &Error{Kind: KindRejected, Status: 400}
				Expect(controller.Submit(context.Background(), file)).NotTo(Succeed())

				state := controller.State()
				Expect(state.Phase).To(Equal(PhaseError))
				Expect(state.Receipt.StoreName).To(Equal("Corner Grocer"))
			})
		})

		When("a failure is followed by a success", func() {
			It("should clear the error", func() {
				uploader.err = errors.New("network down")
				Expect(controller.Submit(context.Background(), file)).NotTo(Succeed())
				Expect(controller.State().Err).To(Equal("network down"))

				uploader.err = nil
				Expect(controller.Submit(context.Background(), file)).To(Succeed())
				Expect(controller.State().Err).To(BeEmpty())
			})
		})
	})

	Describe("concurrent submissions", func() {
		It("should reject a second submit while one is in flight", func() {
			uploader.started = make(chan struct{})
			uploader.release = make(chan struct{})

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- controller.Submit(context.Background(), file)
			}()

			Eventually(uploader.started).Should(BeClosed())
			Expect(controller.State().Phase).To(Equal(PhaseUploading))

			Expect(controller.Submit(context.Background(), file)).To(MatchError(ErrUploadInProgress))
			Expect(uploader.callCount()).To(Equal(1))
			Expect(controller.State().Phase).To(Equal(PhaseUploading))

			close(uploader.release)
			Eventually(done).Should(Receive(BeNil()))
			Expect(controller.State().Phase).To(Equal(PhaseSuccess))
		})
	})

	Describe("a panicking uploader", func() {
		It("should not leave the controller uploading", func() {
			uploader.panicWith = "boom"
			Expect(func() {
				controller.Submit(context.Background(), file)
			}).To(Panic())

			state := controller.State()
			Expect(state.Phase).To(Equal(PhaseError))
			Expect(state.Err).To(Equal(GenericFailure))
		})
	})

	DescribeTable("phase after the call resolves",
		func(r *receipt.Receipt, uploadErr error, expected Phase) {
			uploader.receipt = r
			uploader.err = uploadErr
			controller.Submit(context.Background(), file)
			Expect(controller.State().Phase).To(Equal(expected))
			Expect(controller.State().Phase).NotTo(Equal(PhaseUploading))
		},
		Entry("success", &receipt.Receipt{StoreName: "Acme"}, nil, PhaseSuccess),
		Entry("rejected", nil, &Error{Kind: KindRejected, Status: 503}, PhaseError),
		Entry("transport", nil, &Error{Kind: KindTransport, Err: context.DeadlineExceeded}, PhaseError),
		Entry("malformed", nil, &Error{Kind: KindMalformed, Err: errors.New("bad")}, PhaseError),
	)
})

var _ = Describe("Phase", func() {
	It("should encode by name", func() {
		text, err := PhaseSuccess.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(Equal("success"))
	})
})
