package ufs

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/stretchr/testify/require"
)

func p(s string) ustr.Ustr {
	return ustr.MkUstrSlice([]uint8(s))
}

func TestMkFileWriteReadRoundtrip(t *testing.T) {
	fsys := BootMemFS(512)

	require.Equal(t, defs.Err_t(0), fsys.MkFile(p("hello"), MkBuf([]byte("hello world"))))

	out, err := fsys.Read(p("hello"))
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, "hello world", string(out))
}

func TestAppendExtendsFile(t *testing.T) {
	fsys := BootMemFS(512)
	require.Equal(t, defs.Err_t(0), fsys.MkFile(p("log"), MkBuf([]byte("a"))))
	require.Equal(t, defs.Err_t(0), fsys.Append(p("log"), MkBuf([]byte("b"))))

	out, err := fsys.Read(p("log"))
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, "ab", string(out))
}

func TestUpdateOverwritesFromStart(t *testing.T) {
	fsys := BootMemFS(512)
	require.Equal(t, defs.Err_t(0), fsys.MkFile(p("f"), MkBuf([]byte("xxxxx"))))
	require.Equal(t, defs.Err_t(0), fsys.Update(p("f"), MkBuf([]byte("yy"))))

	out, err := fsys.Read(p("f"))
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, "yyxxx", string(out))
}

func TestMkDirAndLs(t *testing.T) {
	fsys := BootMemFS(512)
	require.Equal(t, defs.Err_t(0), fsys.MkDir(p("sub")))
	require.Equal(t, defs.Err_t(0), fsys.MkFile(p("sub/a"), MkBuf([]byte("1"))))
	require.Equal(t, defs.Err_t(0), fsys.MkFile(p("sub/b"), MkBuf([]byte("22"))))

	entries, err := fsys.Ls(p("sub"))
	require.Equal(t, defs.Err_t(0), err)
	require.Contains(t, entries, "a")
	require.Contains(t, entries, "b")
	require.EqualValues(t, 1, entries["a"].Size())
	require.EqualValues(t, 2, entries["b"].Size())
}

func TestUnlinkRemovesFile(t *testing.T) {
	fsys := BootMemFS(512)
	require.Equal(t, defs.Err_t(0), fsys.MkFile(p("gone"), nil))
	require.Equal(t, defs.Err_t(0), fsys.Unlink(p("gone")))

	_, err := fsys.Stat(p("gone"))
	require.NotEqual(t, defs.Err_t(0), err)
}

func TestStatReportsSize(t *testing.T) {
	fsys := BootMemFS(512)
	require.Equal(t, defs.Err_t(0), fsys.MkFile(p("sized"), MkBuf([]byte("abcdef"))))

	st, err := fsys.Stat(p("sized"))
	require.Equal(t, defs.Err_t(0), err)
	require.EqualValues(t, 6, st.Size())
}

func TestUnlinkDirRemovesEmptyDirectory(t *testing.T) {
	fsys := BootMemFS(512)
	require.Equal(t, defs.Err_t(0), fsys.MkDir(p("empty")))
	require.Equal(t, defs.Err_t(0), fsys.UnlinkDir(p("empty")))

	_, err := fsys.Stat(p("empty"))
	require.NotEqual(t, defs.Err_t(0), err)
}
