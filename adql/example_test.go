package adql_test

import (
	"fmt"

	"github.com/jonwraymond/esotap/adql"
)

func ExampleBuild() {
	ra, dec, radius := 202.48, 47.23, 0.5
	cone, _ := adql.NewCone(&ra, &dec, &radius)
	expTime, _ := adql.Expr(">", "300")

	top := 10
	query, _ := adql.Build(adql.QuerySpec{
		Table:   "dbo.raw",
		Primary: adql.PrimaryFilter{Column: "instrument", Values: []string{"HARPS"}},
		Filters: map[string]adql.Value{"exp_time": expTime},
		Cone:    cone,
		Top:     &top,
	})
	fmt.Println(query)
	// Output:
	// select top 10 * from dbo.raw where instrument in ('HARPS') and exp_time > 300 and intersects(s_region, circle('ICRS', 202.48, 47.23, 0.5))=1
}

func ExampleSanitizeOperatorValue() {
	// A recognized leading operator passes through with its value.
	fmt.Println(adql.SanitizeOperatorValue(adql.String("like '%M 83%'")))

	// Anything else is a literal: quoted once, equality implied.
	fmt.Println(adql.SanitizeOperatorValue(adql.String("M 83")))
	fmt.Println(adql.SanitizeOperatorValue(adql.String("'M 83'")))

	// Numbers never quote.
	fmt.Println(adql.SanitizeOperatorValue(adql.Number(300)))
	// Output:
	// like '%M 83%'
	// = 'M 83'
	// = 'M 83'
	// = 300
}
