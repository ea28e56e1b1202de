package transaction

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/hbgo/capture/internal/scanning"
)

// zeroReader yields zero bytes forever, for streaming oversized uploads.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		service = NewService(db, extractor)
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		// Queue enough handlers for the multi-request specs.
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		extractor = newMockExtractor()
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	uploadReceipt := func(filename string, content []byte) *http.Response {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/receipts", body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("authentication", func() {
		When("credentials are configured", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "secret"}
				setupServer()
			})

			It("should reject requests without credentials", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})

			It("should accept requests with the right credentials", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/transactions", nil)
				Expect(err).NotTo(HaveOccurred())
				creds := base64.StdEncoding.EncodeToString([]byte("user:secret"))
				req.Header.Set("Authorization", "Basic "+creds)

				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})
	})

	Describe("handleCaptureReceipt", func() {
		When("extraction succeeds", func() {
			It("should return the stored transaction", func() {
				resp := uploadReceipt("receipt.jpg", []byte("fake image"))
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var txn Transaction
				Expect(json.NewDecoder(resp.Body).Decode(&txn)).To(Succeed())
				Expect(txn.Payee).To(Equal("Test Shop"))
				Expect(txn.Amount).To(Equal(2599))
				Expect(db.transactions).To(HaveKey(txn.ID))
			})
		})

		When("no file is provided", func() {
			It("should return bad request", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.Close()).To(Succeed())

				req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/receipts", body)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", writer.FormDataContentType())

				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the upload exceeds the size limit", func() {
			It("should reject it as too large", func() {
				// A multipart part that keeps going past the 50MB cap.
				prefix := &bytes.Buffer{}
				writer := multipart.NewWriter(prefix)
				_, err := writer.CreateFormFile("file", "huge.jpg")
				Expect(err).NotTo(HaveOccurred())

				body := io.MultiReader(prefix, io.LimitReader(zeroReader{}, (50<<20)+1))
				req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/receipts", body)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", writer.FormDataContentType())

				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(respBody)).To(ContainSubstring("too large"))
				Expect(db.transactions).To(BeEmpty())
			})
		})

		When("no engine is configured", func() {
			BeforeEach(func() {
				extractor.err = scanning.ErrNoEngine
			})

			It("should explain that manual entry is needed", func() {
				resp := uploadReceipt("receipt.jpg", []byte("fake image"))
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(ContainSubstring("No scan engine configured"))
			})
		})
	})

	Describe("handleListTransactions", func() {
		When("transactions exist", func() {
			BeforeEach(func() {
				db.transactions["id1"] = &Transaction{ID: "id1", Payee: "Shop 1"}
				db.transactions["id2"] = &Transaction{ID: "id2", Payee: "Shop 2"}
			})

			It("should return all of them", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var txns []*Transaction
				Expect(json.NewDecoder(resp.Body).Decode(&txns)).To(Succeed())
				Expect(txns).To(HaveLen(2))
			})
		})
	})

	Describe("handleGetTransaction", func() {
		When("the transaction does not exist", func() {
			It("should return not found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions/missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleUpdateTransaction", func() {
		BeforeEach(func() {
			db.transactions["id1"] = &Transaction{ID: "id1", Payee: "Old"}
		})

		It("should apply the edits", func() {
			payload, err := json.Marshal(Transaction{Payee: "New"})
			Expect(err).NotTo(HaveOccurred())

			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/transactions/id1", bytes.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(db.transactions["id1"].Payee).To(Equal("New"))
		})
	})

	Describe("handleDeleteTransaction", func() {
		BeforeEach(func() {
			db.transactions["id1"] = &Transaction{ID: "id1"}
		})

		It("should delete and return no content", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/transactions/id1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.transactions).To(BeEmpty())
		})
	})

	Describe("handleExportCSV", func() {
		BeforeEach(func() {
			db.transactions["id1"] = &Transaction{
				ID: "id1", Date: "2024-05-12", Amount: 2599, Type: "expense", Payee: "Test Shop",
			}
		})

		It("should serve a CSV attachment", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/export")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("text/csv"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("attachment"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("-25.99"))
		})

		It("should keep the transactions unless clearing was requested", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/export")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(db.transactions).To(HaveLen(1))
		})

		When("clear=true", func() {
			It("should remove the exported transactions", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/export?clear=true")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(db.transactions).To(BeEmpty())
			})
		})
	})

	Describe("handleSettings", func() {
		It("should round-trip settings over the API", func() {
			payload, err := json.Marshal(Settings{
				EngineMode:   scanning.ModeCloud,
				AutoFallback: true,
				DefaultTag:   "phone",
			})
			Expect(err).NotTo(HaveOccurred())

			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/settings", bytes.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			getResp, err := http.Get(ghttpServer.URL() + "/api/settings")
			Expect(err).NotTo(HaveOccurred())
			defer getResp.Body.Close()

			var got Settings
			Expect(json.NewDecoder(getResp.Body).Decode(&got)).To(Succeed())
			Expect(got.EngineMode).To(Equal(scanning.ModeCloud))
			Expect(got.DefaultTag).To(Equal("phone"))
		})
	})

	Describe("handleImportCache", func() {
		It("should import entities from an XHB upload", func() {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			part, err := writer.CreateFormFile("file", "accounts.xhb")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte(`<homebank><pay key="1" name="Woolworths Metro"/></homebank>`))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/cache", body)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(db.cache.Payees).To(Equal([]string{"Woolworths Metro"}))
		})
	})
})
