package snapshot_test

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/recap/internal/adapters/snapshot"
	"github.com/okian/recap/internal/domain/board"
	"github.com/okian/recap/internal/domain/model"
)

func TestEncode(t *testing.T) {
	Convey("Given a view of two cappers", t, func() {
		v := board.ComputeRankedView([]model.Entry{
			{ID: "a", Name: "@MarshyPicks", Role: "Lead Analyst", Units: decimal.RequireFromString("173.27")},
			{ID: "b", Name: "@Capper07", Role: "Tennis Analyst", Units: decimal.RequireFromString("-2.45")},
		}, nil)
		doc := snapshot.FromView(v, "10/01/25", "10/31/25")

		Convey("When it is encoded", func() {
			data, err := snapshot.Encode(doc)
			So(err, ShouldBeNil)

			Convey("Then it is an indented structural echo with numeric units", func() {
				So(string(data), ShouldEqual, `{
  "startDate": "10/01/25",
  "endDate": "10/31/25",
  "cappers": [
    {
      "name": "@MarshyPicks",
      "role": "Lead Analyst",
      "units": 173.27
    },
    {
      "name": "@Capper07",
      "role": "Tennis Analyst",
      "units": -2.45
    }
  ],
  "total": 170.82
}`)
			})

			Convey("Then decoding it gives the same cappers back", func() {
				back, err := snapshot.Decode(data)
				So(err, ShouldBeNil)
				So(back.HasCappers, ShouldBeTrue)
				So(back.Cappers, ShouldHaveLength, 2)
				So(back.Cappers[1].Units.Equal(decimal.RequireFromString("-2.45")), ShouldBeTrue)
				So(back.Total.String(), ShouldEqual, "170.82")
			})
		})
	})

	Convey("Given an empty board", t, func() {
		data, err := snapshot.Encode(snapshot.FromView(board.ComputeRankedView(nil, nil), "", ""))

		Convey("Then cappers is an empty array and total is zero", func() {
			So(err, ShouldBeNil)
			var raw map[string]any
			So(json.Unmarshal(data, &raw), ShouldBeNil)
			So(raw["cappers"], ShouldResemble, []any{})
			So(raw["total"], ShouldEqual, 0.0)
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given import payloads", t, func() {
		Convey("A full document replaces cappers and dates", func() {
			doc, err := snapshot.Decode([]byte(`{"startDate":"11/01/25","endDate":"11/30/25",
				"cappers":[{"name":"x","role":"y","units":3.5},{"name":"z","units":"-$1.25"},{"role":"only","units":null}]}`))
			So(err, ShouldBeNil)
			So(doc.StartDate, ShouldEqual, "11/01/25")
			So(doc.EndDate, ShouldEqual, "11/30/25")
			So(doc.HasCappers, ShouldBeTrue)
			So(doc.Cappers, ShouldHaveLength, 3)
			So(doc.Cappers[0].Units.String(), ShouldEqual, "3.5")
			So(doc.Cappers[1].Role, ShouldEqual, "")
			So(doc.Cappers[1].Units.String(), ShouldEqual, "-1.25")
			So(doc.Cappers[2].Name, ShouldEqual, "")
			So(doc.Cappers[2].Units.IsZero(), ShouldBeTrue)
		})

		Convey("Missing or non-array cappers leave HasCappers false", func() {
			for _, payload := range []string{`{}`, `{"cappers":null}`, `{"cappers":{"a":1}}`, `{"cappers":"x","startDate":"s"}`} {
				doc, err := snapshot.Decode([]byte(payload))
				So(err, ShouldBeNil)
				So(doc.HasCappers, ShouldBeFalse)
			}
		})

		Convey("An empty cappers array is a valid replacement", func() {
			doc, err := snapshot.Decode([]byte(`{"cappers":[]}`))
			So(err, ShouldBeNil)
			So(doc.HasCappers, ShouldBeTrue)
			So(doc.Cappers, ShouldBeEmpty)
		})

		Convey("Malformed payloads are rejected", func() {
			for _, payload := range []string{
				``,
				`not json`,
				`{"cappers":[`,
				`[1,2]`,
				`null`,
				`"text"`,
				`{"cappers":[null]}`,
				`{"cappers":[5]}`,
				`{"cappers":[{"name":7}]}`,
				`{} trailing`,
			} {
				_, err := snapshot.Decode([]byte(payload))
				So(errors.Is(err, snapshot.ErrMalformedPayload), ShouldBeTrue)
			}
		})

		Convey("Exponent literals outside the finite range decode to zero", func() {
			doc, err := snapshot.Decode([]byte(`{"cappers":[{"name":"a","role":"b","units":1e5000000},{"name":"c","units":-1e-5000000},{"name":"d","units":1.5e2}],"total":1e5000000}`))
			So(err, ShouldBeNil)
			So(doc.Cappers, ShouldHaveLength, 3)
			So(doc.Cappers[0].Units.IsZero(), ShouldBeTrue)
			So(doc.Cappers[1].Units.IsZero(), ShouldBeTrue)
			So(doc.Cappers[2].Units.Equal(decimal.NewFromInt(150)), ShouldBeTrue)
			So(doc.Total.IsZero(), ShouldBeTrue)

			view := board.ComputeRankedView(doc.Cappers, nil)
			So(view.Rows[0].UnitsDisplay, ShouldEqual, "+150.00")
			So(view.Rows[1].UnitsDisplay, ShouldEqual, "+0.00")
			So(view.TotalDisplay, ShouldEqual, "+150.00")
		})

		Convey("Non-string dates are ignored", func() {
			doc, err := snapshot.Decode([]byte(`{"startDate":5,"cappers":[]}`))
			So(err, ShouldBeNil)
			So(doc.StartDate, ShouldEqual, "")
		})
	})
}

func TestFiles(t *testing.T) {
	Convey("Given a temp directory", t, func() {
		path := filepath.Join(t.TempDir(), "board.json")
		doc := snapshot.Document{
			StartDate:  "a",
			EndDate:    "b",
			Cappers:    []model.Entry{{Name: "n", Role: "r", Units: decimal.NewFromInt(4)}},
			HasCappers: true,
			Total:      decimal.NewFromInt(4),
		}

		Convey("Then a written document reads back", func() {
			So(snapshot.WriteFile(path, doc), ShouldBeNil)
			back, err := snapshot.ReadFile(path)
			So(err, ShouldBeNil)
			So(back.Cappers[0].Name, ShouldEqual, "n")
			So(back.StartDate, ShouldEqual, "a")
		})

		Convey("Then a missing file is an error", func() {
			_, err := snapshot.ReadFile(filepath.Join(t.TempDir(), "missing.json"))
			So(err, ShouldNotBeNil)
		})
	})
}
