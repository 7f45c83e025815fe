package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"surveydeck/adapters/excel"
	"surveydeck/internal/errors"
)

const definition = `
title: 命令行测试
weights:
  band: {"＜20%": 0.1, "20-40%": 0.3, "＞80%": 0.9}
questions:
  - column: 贫血比例
    type: single
    weights: band
breakouts:
  大区: [北区, 南区]
deck:
  slides:
    - {kind: standard, column: 贫血比例, breakout: 大区}
    - {kind: bins, column: 门诊患者数, edges: [0, 200, 400]}
`

type fixture struct {
	dir      string
	export   string
	settings string
	logs     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		dir:      dir,
		export:   filepath.Join(dir, "export.xlsx"),
		settings: filepath.Join(dir, "survey.yaml"),
		logs:     filepath.Join(dir, "logs"),
	}

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"大区", "贫血比例", "门诊患者数"},
		{"北区", "＜20%", 100},
		{"北区", "20-40%", 200},
		{"南区", "＞80%", 300},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	require.NoError(t, f.SaveAs(fx.export))
	require.NoError(t, os.WriteFile(fx.settings, []byte(definition), 0644))
	return fx
}

func (fx fixture) run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--data", fx.export, "--settings", fx.settings, "--log-dir", fx.logs))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCleanCommand(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.dir, "out", "cleaned.xlsx")

	stdout, err := fx.run("clean", "--out", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Rows: 3 → 3")
	assert.Contains(t, stdout, "Written: "+out)

	table, err := excel.NewDataReader(out, excel.DefaultConfig()).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"大区", "贫血比例", "门诊患者数"}, table.Columns())
}

func TestStatsCommand_WeightedBreakout(t *testing.T) {
	fx := newFixture(t)

	stdout, err := fx.run("stats", "--column", "贫血比例", "--breakout", "大区")
	require.NoError(t, err)

	assert.Contains(t, stdout, "贫血比例 (单选, n=3 of 3)")
	assert.Contains(t, stdout, "加权平均: 43.3%")
	assert.Contains(t, stdout, "北区 (n=2): 20.0%")
	assert.Contains(t, stdout, "南区 (n=1): 90.0%")
}

func TestStatsCommand_InferredNumericBins(t *testing.T) {
	fx := newFixture(t)

	stdout, err := fx.run("stats", "--column", "门诊患者数", "--bins", "0,200,400")
	require.NoError(t, err)

	assert.Contains(t, stdout, "(数值填空, n=3 of 3)")
	assert.Contains(t, stdout, "[0, 200)")
	assert.Contains(t, stdout, "[200, 400)")
}

func TestStatsCommand_Errors(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.run("stats")
	assert.ErrorContains(t, err, `required flag(s) "column" not set`)

	_, err = fx.run("stats", "--column", "不存在", "--type", "single")
	assert.Equal(t, errors.CodeMissingColumn, errors.GetCode(err))

	_, err = fx.run("stats", "--column", "贫血比例", "--bins", "0,10")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestDeckCommand(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.dir, "deck", "deck.xlsx")
	page := filepath.Join(fx.dir, "deck", "deck.html")
	md := filepath.Join(fx.dir, "deck", "deck.md")

	stdout, err := fx.run("deck", "--out", out, "--html", page, "--markdown", md, "--workers", "2")
	require.NoError(t, err)

	assert.Contains(t, stdout, "2 slides")
	for _, path := range []string{out, page, md} {
		assert.FileExists(t, path)
		assert.Contains(t, stdout, "Written: "+path)
	}
	assert.FileExists(t, filepath.Join(fx.logs, "surveydeck.log"))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 3)
}

func TestDeckCommand_InvalidConfig(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.run("deck", "--workers", "100")
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestParseBins(t *testing.T) {
	edges, err := parseBins(" 0, 0.5 ,1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, edges)

	edges, err = parseBins("")
	require.NoError(t, err)
	assert.Nil(t, edges)

	_, err = parseBins("0,x")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestProfileCommand(t *testing.T) {
	fx := newFixture(t)

	stdout, err := fx.run("profile")
	require.NoError(t, err)

	assert.Contains(t, stdout, "1 numeric columns of 3")
	assert.Contains(t, stdout, "门诊患者数")
	assert.NotContains(t, stdout, "贫血比例\t")
}
