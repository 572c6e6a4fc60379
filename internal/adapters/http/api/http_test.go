package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/recap/internal/adapters/http/api"
	service "github.com/okian/recap/internal/app"
)

func newTestRouter(svc *service.Service) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc, svc, api.WithMaxImportBytes(4096)).Register(r)
	return r
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeMutation(w *httptest.ResponseRecorder) api.MutationResponse {
	var resp api.MutationResponse
	So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
	return resp
}

func errorCode(w *httptest.ResponseRecorder) string {
	var resp struct {
		Code string `json:"code"`
	}
	So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
	return resp.Code
}

func TestLeaderboardRoutes(t *testing.T) {
	Convey("Given a started service behind the API", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithRemovalDelay(0))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)
		h := newTestRouter(svc)

		Convey("When the leaderboard is requested", func() {
			w := do(h, http.MethodGet, "/api/leaderboard", "")

			Convey("Then the seeded ranked view is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var v api.ViewResponse
				So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
				So(v.State, ShouldEqual, "populated")
				So(v.Rows, ShouldHaveLength, 8)
				So(v.Rows[0].Rank, ShouldEqual, "01")
				So(v.Rows[0].Name, ShouldEqual, "@MarshyPicks")
				So(v.Rows[0].TopTier, ShouldBeTrue)
				So(v.Rows[3].TopTier, ShouldBeFalse)
				So(v.Rows[7].UnitsDisplay, ShouldEqual, "-2.45")
				So(v.Rows[7].Nonnegative, ShouldBeFalse)
				So(v.TotalDisplay, ShouldEqual, "+207.08")
				So(v.StartDate, ShouldEqual, "10/01/25")
			})
		})

		Convey("When a capper is added", func() {
			w := do(h, http.MethodPost, "/api/cappers", "", api.IdempotencyHeader, "click-1")

			Convey("Then the default entry is created and ranked", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				resp := decodeMutation(w)
				So(resp.Status, ShouldEqual, "applied")
				So(resp.Entry, ShouldNotBeNil)
				So(resp.Entry.Name, ShouldEqual, "@NewCapper")
				So(resp.Entry.Role, ShouldEqual, "Specialist")
				So(resp.View.Rows, ShouldHaveLength, 9)
			})

			Convey("And the same idempotency key is replayed", func() {
				again := do(h, http.MethodPost, "/api/cappers", "", api.IdempotencyHeader, "click-1")

				Convey("Then it is answered as a duplicate without another entry", func() {
					So(again.Code, ShouldEqual, http.StatusOK)
					resp := decodeMutation(again)
					So(resp.Duplicate, ShouldBeTrue)
					So(resp.Status, ShouldEqual, "duplicate")
					So(resp.View.Rows, ShouldHaveLength, 9)
				})
			})
		})

		Convey("When units are committed by id", func() {
			id := svc.View().Rows[0].ID
			w := do(h, http.MethodPatch, "/api/cappers/"+id, `{"field":"units","value":"+168.45"}`)

			Convey("Then the value is parsed and the total follows", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				resp := decodeMutation(w)
				So(string(resp.Entry.Units), ShouldEqual, "168.45")
				So(resp.View.Rows[0].UnitsDisplay, ShouldEqual, "+168.45")
				So(resp.View.TotalDisplay, ShouldEqual, "+202.26")
			})
		})

		Convey("When a name is committed by position", func() {
			w := do(h, http.MethodPatch, "/api/rows/1", `{"field":"name","value":"<b>@Renamed</b>"}`)

			Convey("Then the text is stored verbatim", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeMutation(w).View.Rows[1].Name, ShouldEqual, "<b>@Renamed</b>")
			})
		})

		Convey("When a commit targets a position outside the view", func() {
			w := do(h, http.MethodPatch, "/api/rows/99", `{"field":"name","value":"x"}`)

			Convey("Then it is rejected as an invalid index", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "invalid_index")
			})
		})

		Convey("When a commit targets an unknown id", func() {
			w := do(h, http.MethodPatch, "/api/cappers/nope", `{"field":"name","value":"x"}`)

			Convey("Then it is rejected as not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})

		Convey("When the commit body is invalid", func() {
			badField := do(h, http.MethodPatch, "/api/rows/0", `{"field":"rank","value":"1"}`)
			noValue := do(h, http.MethodPatch, "/api/rows/0", `{"field":"name"}`)
			badIndex := do(h, http.MethodPatch, "/api/rows/abc", `{"field":"name","value":"x"}`)
			notJSON := do(h, http.MethodPatch, "/api/rows/0", `{`)

			Convey("Then each is a bad request", func() {
				So(badField.Code, ShouldEqual, http.StatusBadRequest)
				So(badField.Body.String(), ShouldContainSubstring, "field must be one of")
				So(noValue.Code, ShouldEqual, http.StatusBadRequest)
				So(noValue.Body.String(), ShouldContainSubstring, "value is required")
				So(badIndex.Code, ShouldEqual, http.StatusBadRequest)
				So(notJSON.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the top row is deleted by position", func() {
			w := do(h, http.MethodDelete, "/api/rows/0", "")

			Convey("Then it is removed and the ranks shift", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				resp := decodeMutation(w)
				So(resp.Entry.Name, ShouldEqual, "@MarshyPicks")
				So(resp.View.Rows, ShouldHaveLength, 7)
				So(resp.View.Rows[0].Name, ShouldEqual, "@Capper01")
				So(resp.View.Rows[0].Rank, ShouldEqual, "01")
			})
		})

		Convey("When a malformed document is imported", func() {
			before := svc.View().Version
			w := do(h, http.MethodPost, "/api/import", `{not json`)

			Convey("Then it is accepted and nothing changes", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(svc.View().Version, ShouldEqual, before)
				So(svc.View().Rows, ShouldHaveLength, 8)
			})
		})

		Convey("When a document is imported", func() {
			doc := `{"startDate":"11/01/25","endDate":"11/30/25","cappers":[{"name":"@A","role":"R","units":1.5},{"name":"@B","role":"R","units":"-3"}]}`
			w := do(h, http.MethodPost, "/api/import", doc)

			Convey("Then the board and the period are replaced", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				lb := do(h, http.MethodGet, "/api/leaderboard", "")
				var v api.ViewResponse
				So(json.Unmarshal(lb.Body.Bytes(), &v), ShouldBeNil)
				So(v.Rows, ShouldHaveLength, 2)
				So(v.TotalDisplay, ShouldEqual, "-1.50")
				So(v.TotalNegative, ShouldBeTrue)
				So(v.StartDate, ShouldEqual, "11/01/25")
				So(v.EndDate, ShouldEqual, "11/30/25")
			})
		})

		Convey("When an import exceeds the size cap", func() {
			w := do(h, http.MethodPost, "/api/import", `{"cappers":[`+strings.Repeat(" ", 5000)+`]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})

		Convey("When the board is exported", func() {
			w := do(h, http.MethodGet, "/api/export", "")

			Convey("Then an indented document is offered as a download", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, api.ExportFilename)
				So(w.Body.String(), ShouldContainSubstring, "\n  \"cappers\": [")
				So(bytes.Contains(w.Body.Bytes(), []byte(`"total": 207.08`)), ShouldBeTrue)
			})
		})

		Convey("When operational endpoints are requested", func() {
			health := do(h, http.MethodGet, "/healthz", "")
			stats := do(h, http.MethodGet, "/stats", "")
			prom := do(h, http.MethodGet, "/metrics", "")

			Convey("Then each answers", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, `"ok"`)
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Body.String(), ShouldContainSubstring, `"entries":8`)
				So(prom.Code, ShouldEqual, http.StatusOK)
				So(prom.Body.String(), ShouldContainSubstring, "recap_")
			})
		})
	})
}

func TestPendingRemovalRoutes(t *testing.T) {
	Convey("Given a service with a long exit delay", t, func() {
		svc := service.New(service.WithRemovalDelay(time.Hour))
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		h := newTestRouter(svc)
		id := svc.View().Rows[2].ID

		Convey("When an entry is deleted", func() {
			w := do(h, http.MethodDelete, "/api/cappers/"+id, "")

			Convey("Then it stays ranked but is marked as leaving", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				resp := decodeMutation(w)
				So(resp.View.Rows, ShouldHaveLength, 8)
				So(resp.View.Rows[2].PendingRemoval, ShouldBeTrue)
			})

			Convey("And an edit of the leaving entry conflicts", func() {
				edit := do(h, http.MethodPatch, "/api/cappers/"+id, `{"field":"name","value":"x"}`)
				So(edit.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(edit), ShouldEqual, "pending_removal")
			})
		})
	})
}

func TestServiceNotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		h := newTestRouter(svc)

		Convey("When a mutation is sent", func() {
			w := do(h, http.MethodPost, "/api/cappers", "")

			Convey("Then the API reports it unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(errorCode(w), ShouldEqual, "unavailable")
			})
		})
	})
}
