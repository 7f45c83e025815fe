package survey

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable("医院", "门诊患者数", "大区")
	require.NoError(t, tbl.AppendRow(Text("A医院"), Number(120), Text("北区")))
	require.NoError(t, tbl.AppendRow(Text("B医院"), Missing(), Text("南区")))
	require.NoError(t, tbl.AppendRow(Text("C医院"), Text("80")))
	return tbl
}

func TestValue_Constructors(t *testing.T) {
	assert.True(t, Text("   ").IsMissing())
	assert.True(t, Number(math.NaN()).IsMissing())
	assert.True(t, Number(math.Inf(1)).IsMissing())
	assert.True(t, Value{}.IsMissing())
	assert.False(t, Number(0).IsMissing())

	assert.Equal(t, "0.5", Number(0.5).String())
	assert.Equal(t, "12", Number(12).String())
	assert.Equal(t, 80.0, Text(" 80 ").Float())
	assert.True(t, math.IsNaN(Text("北区").Float()))
	assert.Nil(t, Missing().Interface())
}

func TestTable_AppendRowPadsAndRejectsWideRows(t *testing.T) {
	tbl := newTestTable(t)

	assert.Equal(t, 3, tbl.Len())
	region, ok := tbl.Column("大区")
	require.True(t, ok)
	assert.True(t, region[2].IsMissing())

	err := tbl.AppendRow(Text("a"), Text("b"), Text("c"), Text("d"))
	assert.Error(t, err)
	assert.Equal(t, 3, tbl.Len())
}

func TestTable_Numbers(t *testing.T) {
	tbl := newTestTable(t)

	nums, ok := tbl.Numbers("门诊患者数")
	require.True(t, ok)
	assert.Equal(t, 120.0, nums[0])
	assert.True(t, math.IsNaN(nums[1]))
	assert.Equal(t, 80.0, nums[2])
	assert.Equal(t, []float64{120, 80}, ValidNumbers(nums))

	_, ok = tbl.Numbers("nope")
	assert.False(t, ok)
}

func TestTable_RenameDropSet(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Rename(map[string]string{"门诊患者数": "患者数", "unknown": "x"})
	assert.Equal(t, []string{"医院", "患者数", "大区"}, tbl.Columns())

	tbl.Drop("医院", "missing")
	assert.Equal(t, []string{"患者数", "大区"}, tbl.Columns())

	require.NoError(t, tbl.SetNumbers("double", []float64{1, math.NaN(), 3}))
	assert.Equal(t, []string{"患者数", "大区", "double"}, tbl.Columns())
	assert.Error(t, tbl.SetNumbers("short", []float64{1}))
}

func TestTable_RenameCollisionKeepsLater(t *testing.T) {
	tbl := NewTable("a", "b")
	require.NoError(t, tbl.AppendRow(Text("first"), Text("second")))

	tbl.Rename(map[string]string{"b": "a"})

	assert.Equal(t, []string{"a"}, tbl.Columns())
	col, _ := tbl.Column("a")
	assert.Equal(t, "second", col[0].String())
}

func TestTable_FilterDoesNotMutateSource(t *testing.T) {
	tbl := newTestTable(t)

	out := tbl.Filter(func(i int) bool { return i != 1 })

	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, "C医院", out.Row(1)[0].String())
}

func TestStatsTable_ReindexAndFormat(t *testing.T) {
	st := NewStatsTable([]string{"A", "B"}, []string{"percentage"})
	st.Set("A", "percentage", 0.6)
	st.Set("B", "percentage", 0.4)
	st.Set("Z", "percentage", 1)

	re := st.Reindex([]string{"B", "C", "A"})
	v, ok := re.Get("B", "percentage")
	assert.True(t, ok)
	assert.Equal(t, 0.4, v)
	_, ok = re.Get("C", "percentage")
	assert.False(t, ok)
	assert.InDelta(t, 1.0, re.Sum("percentage"), 1e-12)

	out := re.Format(true)
	assert.Contains(t, out, "40.0%")
	assert.Contains(t, out, "-")
}

func TestStatsTable_Select(t *testing.T) {
	st := NewStatsTable([]string{"x"}, []string{"count", "percentage"})
	st.Set("x", "count", 3)
	st.Set("x", "percentage", 0.5)

	sel := st.Select("percentage", "nope")
	assert.Equal(t, []string{"percentage", "nope"}, sel.Columns)
	v, _ := sel.Get("x", "percentage")
	assert.Equal(t, 0.5, v)
	_, ok := sel.Get("x", "nope")
	assert.False(t, ok)
}

func TestParseAnswerType(t *testing.T) {
	for in, want := range map[string]AnswerType{
		"single": AnswerSingle, "多选": AnswerMultiple, " Numeric ": AnswerNumeric,
	} {
		got, err := ParseAnswerType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAnswerType("ranking")
	assert.Error(t, err)
}

func TestGroupAverages(t *testing.T) {
	g := GroupAverages{
		Groups: []string{"北区", "南区"},
		Values: []Average{Unavailable(), {Value: 0.42, Available: true}},
	}

	assert.True(t, g.Available())
	assert.Equal(t, "42.0%", g.Get("南区").Format())
	assert.Equal(t, "n/a", g.Get("西区").Format())
	assert.Equal(t, "北区\n(n=7)", BaseLabel("北区", 7))
}
