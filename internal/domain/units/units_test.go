package units_test

import (
	"testing"

	"github.com/okian/recap/internal/domain/units"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given raw units input", t, func() {
		Convey("When the input is a plain number", func() {
			So(units.Parse("173.27").Equal(decimal.RequireFromString("173.27")), ShouldBeTrue)
			So(units.Parse("-2.45").Equal(decimal.RequireFromString("-2.45")), ShouldBeTrue)
			So(units.Parse("0").IsZero(), ShouldBeTrue)
		})

		Convey("When the input carries a display sign and decoration", func() {
			So(units.Parse("+19.37").Equal(decimal.RequireFromString("19.37")), ShouldBeTrue)
			So(units.Parse(" 4.62 UNITS ").Equal(decimal.RequireFromString("4.62")), ShouldBeTrue)
			So(units.Parse("$1,250.5").Equal(decimal.RequireFromString("1250.5")), ShouldBeTrue)
		})

		Convey("When the input has no numeric content", func() {
			for _, in := range []string{"", "abc", "-", ".", "--5", "-.", "∞", "NaN", "Infinity"} {
				So(units.Parse(in).IsZero(), ShouldBeTrue)
			}
		})

		Convey("When the cleaned text only has a numeric prefix", func() {
			So(units.Parse("1.2.3").Equal(decimal.RequireFromString("1.2")), ShouldBeTrue)
			So(units.Parse("5-3").Equal(decimal.RequireFromString("5")), ShouldBeTrue)
			So(units.Parse("7.").Equal(decimal.RequireFromString("7")), ShouldBeTrue)
			So(units.Parse(".5").Equal(decimal.RequireFromString("0.5")), ShouldBeTrue)
			So(units.Parse("-.25").Equal(decimal.RequireFromString("-0.25")), ShouldBeTrue)
		})

		Convey("When an exponent is typed", func() {
			// the letter is stripped before parsing
			So(units.Parse("1e3").Equal(decimal.RequireFromString("13")), ShouldBeTrue)
		})
	})
}

func TestFormat(t *testing.T) {
	Convey("Given decimal values", t, func() {
		cases := map[string]string{
			"0":        "+0.00",
			"-2.45":    "-2.45",
			"173.2":    "+173.20",
			"173.27":   "+173.27",
			"168.45":   "+168.45",
			"1.005":    "+1.01",
			"-1.005":   "-1.01",
			"-0.001":   "-0.00",
			"0.004":    "+0.00",
			"12345678": "+12345678.00",
		}
		for in, want := range cases {
			So(units.Format(decimal.RequireFromString(in)), ShouldEqual, want)
		}
	})
}

func TestFromNumber(t *testing.T) {
	Convey("Given number literals", t, func() {
		Convey("Plain and exponent forms keep their exact value", func() {
			So(units.FromNumber("3.5").String(), ShouldEqual, "3.5")
			So(units.FromNumber("-1.25").String(), ShouldEqual, "-1.25")
			So(units.FromNumber("1.5e2").Equal(decimal.NewFromInt(150)), ShouldBeTrue)
			So(units.FromNumber("0.1").String(), ShouldEqual, "0.1")
		})

		Convey("Overflowing and underflowing literals are zero", func() {
			for _, in := range []string{"1e5000000", "-1e5000000", "1e-5000000", "1e400"} {
				d := units.FromNumber(in)
				So(d.IsZero(), ShouldBeTrue)
				So(units.Format(d), ShouldEqual, "+0.00")
			}
		})

		Convey("Text that is not a literal is zero", func() {
			So(units.FromNumber("abc").IsZero(), ShouldBeTrue)
			So(units.FromNumber("").IsZero(), ShouldBeTrue)
		})
	})
}

func TestRoundTrip(t *testing.T) {
	Convey("Given values with at most two fractional digits", t, func() {
		for _, s := range []string{"0", "0.01", "-0.01", "173.27", "-2.37", "19.3", "-100", "99999.99"} {
			x := decimal.RequireFromString(s)

			Convey("Then parse(format(x)) == x for "+s, func() {
				So(units.Parse(units.Format(x)).Equal(x), ShouldBeTrue)
			})
		}
	})

	Convey("Given a value with more precision", t, func() {
		x := decimal.RequireFromString("3.14159")

		Convey("Then the round trip holds at display precision", func() {
			So(units.Parse(units.Format(x)).Equal(x.Round(units.Places)), ShouldBeTrue)
		})
	})
}

func TestClassification(t *testing.T) {
	Convey("Given the sign helpers", t, func() {
		So(units.IsNonnegative(decimal.Zero), ShouldBeTrue)
		So(units.IsNegative(decimal.Zero), ShouldBeFalse)
		So(units.IsNegative(decimal.RequireFromString("-0.01")), ShouldBeTrue)
		So(units.IsNonnegative(decimal.RequireFromString("-0.01")), ShouldBeFalse)
	})

	Convey("Given values to sum", t, func() {
		total := units.Sum(
			decimal.RequireFromString("173.27"),
			decimal.RequireFromString("-2.37"),
			decimal.RequireFromString("-2.45"),
		)
		So(units.Format(total), ShouldEqual, "+168.45")
		So(units.Sum().IsZero(), ShouldBeTrue)
	})
}
