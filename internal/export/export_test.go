package export_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/inkscore/internal/domain/types"
	"github.com/okian/inkscore/internal/export"
	. "github.com/smartystreets/goconvey/convey"
)

func entries() []types.Entry {
	return []types.Entry{
		{Rank: 1, ContestantName: "Ana, the Bold", Category: "color", AggregateScore: 15.8, AverageScore: 7.9, EvaluationCount: 2, Judges: []string{"J1", "J2"}},
		{Rank: 2, ContestantName: "Bo", Category: "realism", AggregateScore: 7, AverageScore: 7, EvaluationCount: 1, Judges: []string{"J1"}},
	}
}

func TestWrite(t *testing.T) {
	Convey("Given a ranked leaderboard", t, func() {
		Convey("When exported as CSV", func() {
			var buf bytes.Buffer
			So(export.Write(&buf, export.CSV, entries()), ShouldBeNil)

			Convey("Then the header and quoted rows are written", func() {
				So(buf.String(), ShouldEqual,
					"rank,contestant,category,aggregate_score,average_score,evaluation_count,judges\n"+
						"1,\"Ana, the Bold\",color,15.80,7.90,2,J1; J2\n"+
						"2,Bo,realism,7.00,7.00,1,J1\n")
			})
		})

		Convey("When exported as JSON", func() {
			var buf bytes.Buffer
			So(export.Write(&buf, export.JSON, entries()), ShouldBeNil)

			var rows []map[string]any
			So(json.Unmarshal(buf.Bytes(), &rows), ShouldBeNil)

			Convey("Then every column is present", func() {
				So(len(rows), ShouldEqual, 2)
				So(rows[0]["contestant"], ShouldEqual, "Ana, the Bold")
				So(rows[0]["average_score"], ShouldEqual, 7.9)
				So(rows[1]["rank"], ShouldEqual, float64(2))
			})
		})

		Convey("When the leaderboard is empty", func() {
			var buf bytes.Buffer
			So(export.Write(&buf, export.CSV, nil), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "rank,")
		})
	})

	Convey("Given format names", t, func() {
		f, err := export.ParseFormat("")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, export.CSV)
		So(f.ContentType(), ShouldStartWith, "text/csv")

		f, err = export.ParseFormat("JSON")
		So(err, ShouldBeNil)
		So(f.ContentType(), ShouldEqual, "application/json")

		_, err = export.ParseFormat("xlsx")
		So(errors.Is(err, export.ErrUnknownFormat), ShouldBeTrue)
		So(errors.Is(export.Write(&bytes.Buffer{}, "xlsx", nil), export.ErrUnknownFormat), ShouldBeTrue)
	})
}
