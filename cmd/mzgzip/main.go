// Command mzgzip compresses and decompresses MZGF files, and lists the
// contents of an index.
//
//	mzgzip [options] file|file.mgz
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nfam/pool/iocopy"
	"github.com/spf13/pflag"

	"github.com/slagelwa/mzgzip/mzgf"
)

const prog = "mzgzip"

var (
	flagStdout     = pflag.BoolP("stdout", "c", false, "write to standard output, keep orig files unchanged")
	flagForce      = pflag.BoolP("force", "f", false, "overwrite files without asking")
	flagDecompress = pflag.BoolP("decompress", "d", false, "decompress")
	flagList       = pflag.BoolP("list", "l", false, "list compressed file contents")
	flagVOffset    = pflag.Int64P("voffset", "v", -1, "decompress at virtual file pointer INT")
	flagUOffset    = pflag.Int64P("uoffset", "u", -1, "decompress at INT bytes into uncompressed file")
	flagSize       = pflag.Int64P("size", "s", -1, "decompress up to INT bytes")
	flagHelp       = pflag.BoolP("help", "h", false, "give this help")
)

func usage() {
	fmt.Print(`usage: mzgzip [options] [file|file.mgz]
Compress or decompress input

Options
   -h, --help        give this help
   -c                write to standard output, keep orig files unchanged
   -f, --force       overwrite files without asking
   -d, --decompress  decompress
   -l, --list        list compressed file contents
   -v, --voffset INT decompress at virtual file pointer INT
   -u, --uoffset INT decompress at INT bytes into uncompressed file
   -s, --size INT    decompress up to INT bytes
`)
}

func fatal(file string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s: %v\n", prog, file, err)
}

func main() {
	pflag.Parse()
	if *flagHelp {
		usage()
		return
	}
	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s: wrong number of arguments\n", prog)
		usage()
		os.Exit(1)
	}
	file := pflag.Arg(0)

	decompress := *flagDecompress || *flagVOffset != -1 || *flagUOffset != -1 || *flagSize != -1

	var ret int
	switch {
	case *flagList:
		ret = listContents(file)
	case decompress:
		ret = decompressFile(file)
	default:
		ret = compressFile(file)
	}
	os.Exit(ret)
}

func confirmOverwrite(path string) bool {
	if *flagForce {
		return true
	}
	if _, err := os.Stat(path); err != nil {
		return true
	}
	fmt.Printf("%s: %s already exists; do you wish to overwrite (y or n)? ", prog, path)
	r := bufio.NewReader(os.Stdin)
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line != "y" && line != "Y" {
		fmt.Fprintf(os.Stderr, "%s: not overwritten\n", prog)
		return false
	}
	return true
}

func compressFile(file string) int {
	src, err := os.Open(file)
	if err != nil {
		fatal(file, err)
		return 1
	}
	defer src.Close()

	out := file
	dst := os.Stdout
	if !*flagStdout {
		if strings.HasSuffix(file, ".mgz") {
			fatal(file, fmt.Errorf("already has .mgz suffix -- unchanged"))
			return 1
		}
		out += ".mgz"
		if !confirmOverwrite(out) {
			return 1
		}
		f, err := os.Create(out)
		if err != nil {
			fatal(out, err)
			return 1
		}
		defer f.Close()
		dst = f
	}

	w := mzgf.NewWriter()
	if err := w.Deflate(src, dst); err != nil {
		fatal(file, err)
		return 1
	}
	return 0
}

func decompressFile(file string) int {
	if !strings.HasSuffix(file, ".mgz") {
		fatal(file, fmt.Errorf("unknown suffix -- ignored"))
		return 1
	}

	r, err := mzgf.Open(file)
	if err != nil {
		fatal(file, err)
		return 1
	}
	defer r.Close()

	out := file
	dst := os.Stdout
	if !*flagStdout {
		out = file[:len(file)-len(".mgz")]
		if !confirmOverwrite(out) {
			return 1
		}
		f, err := os.Create(out)
		if err != nil {
			fatal(out, err)
			return 1
		}
		defer f.Close()
		dst = f
	}

	switch {
	case *flagVOffset != -1:
		if err := r.VSeek(mzgf.VOffset(*flagVOffset)); err != nil {
			fatal(file, err)
			return 1
		}
	case *flagUOffset != -1:
		if err := r.USeek(uint64(*flagUOffset)); err != nil {
			fatal(file, err)
			return 1
		}
	}

	var body io.Reader = r
	if *flagSize >= 0 {
		body = io.LimitReader(r, *flagSize)
	}
	if _, err := iocopy.Copy(dst, body); err != nil {
		fatal(file, err)
		return 1
	}
	return 0
}

func listContents(file string) int {
	if !strings.HasSuffix(file, ".mgz") {
		fatal(file, fmt.Errorf("unknown suffix -- ignored"))
		return 1
	}

	r, err := mzgf.Open(file)
	if err != nil {
		fatal(file, err)
		return 1
	}
	defer r.Close()

	fmt.Printf("MZGF Version: %d\n", r.Version())
	fmt.Printf("MZGF Date Time: %s\n", time.Unix(int64(r.MTime()), 0).Local().Format(time.ANSIC))
	fmt.Printf("MZGF Uncompressed size: %d\n", r.UFileSize())
	fmt.Println("MZGF Virtual/Uncompressed Offsets:")
	for _, e := range r.BIndex() {
		fmt.Printf("%14d %12d\n", e.ZOffset<<16, e.UOffset)
	}
	return 0
}
