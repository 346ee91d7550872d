package csvcorpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readplan/pkg/contract"
)

const sample = `index,title,chapter,length
1,Genesis,1,797
1,Genesis,2,632
2,Exodus,1,445
3,Leviticus,1,1037
`

func writeCorpus(t *testing.T, body string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "bible.csv")
	require.NoError(t, os.WriteFile(fp, []byte(body), 0o644))
	return fp
}

// 按书卷序号筛选，保持文件顺序
func TestReadFiltered(t *testing.T) {
	r, err := New(&Options{Path: writeCorpus(t, sample)})
	require.NoError(t, err)
	got, err := r.Read(context.Background(), []int{1, 3})
	require.NoError(t, err)
	want := []contract.ChapterRecord{
		{Book: 1, Title: "Genesis", Chapter: 1, Length: 797},
		{Book: 1, Title: "Genesis", Chapter: 2, Length: 632},
		{Book: 3, Title: "Leviticus", Chapter: 1, Length: 1037},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("读取结果不符 (-want +got):\n%s", diff)
	}
}

func TestReadAllCustomComma(t *testing.T) {
	body := strings.ReplaceAll(strings.ReplaceAll(sample, ",", ";"), "index;", "Index;")
	r, err := New(&Options{Path: writeCorpus(t, body), Comma: ";"})
	require.NoError(t, err)
	got, err := r.Read(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestReadStdin(t *testing.T) {
	r, err := New(&Options{Path: "-"})
	require.NoError(t, err)
	r.stdin = strings.NewReader(sample)
	got, err := r.Read(context.Background(), []int{2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Exodus", got[0].Title)
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"空文件":  "",
		"缺列":   "index,title,chapter\n1,A,1\n",
		"非整数":  "index,title,chapter,length\n1,A,one,3\n",
		"列数不符": "index,title,chapter,length\n1,A,1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := New(&Options{Path: writeCorpus(t, body)})
			require.NoError(t, err)
			_, err = r.Read(context.Background(), nil)
			if !errors.Is(err, contract.ErrInvalidInput) {
				t.Fatalf("期望 ErrInvalidInput, 实得 %v", err)
			}
		})
	}
}

// I/O 错误原样上抛
func TestReadMissingFile(t *testing.T) {
	r, err := New(&Options{Path: filepath.Join(t.TempDir(), "none.csv")})
	require.NoError(t, err)
	_, err = r.Read(context.Background(), nil)
	var perr *os.PathError
	assert.ErrorAs(t, err, &perr)
}

func TestReadCtxCancel(t *testing.T) {
	r, err := New(&Options{Path: writeCorpus(t, sample)})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Read(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewInvalid(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Options{Path: "a.csv", Comma: ";;"})
	assert.Error(t, err)
	_, err = New(&Options{Path: "a.csv", Comma: `"`})
	assert.Error(t, err)
}
