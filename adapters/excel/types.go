package excel

// Sheets and headers of the settings workbook.
const (
	QuestionMapSheet = "题目映射"
	OriginalHeader   = "原始列名"
	ShortHeader      = "简化列名"

	RegionSheet  = "内部架构"
	TargetHeader = "目标名称"
	RegionHeader = "大区"
)

// RawData is a sheet as read from disk: trimmed headers and string rows.
type RawData struct {
	Headers []string
	Rows    [][]string
}
