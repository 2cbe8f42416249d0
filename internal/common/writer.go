/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/internal/common/writer.go
*/
package common

import (
	"bufio"
	"fmt"
	"io"
)

// Writer serializes Values to RESP and writes them to an underlying stream.
type Writer struct {
	writer *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: bufio.NewWriter(w)}
}

// Serialize renders v as a RESP wire frame.
func Serialize(v *Value) string {
	switch v.Typ {
	case ARRAY:
		if v.NullArray {
			return fmt.Sprintf("*-1%s", EOD)
		}
		reply := fmt.Sprintf("%s%d%s", ARRAY, len(v.Arr), EOD)
		for i := range v.Arr {
			reply += Serialize(&v.Arr[i])
		}
		return reply
	case STRING:
		return fmt.Sprintf("%s%s%s", STRING, v.Str, EOD)
	case BULK:
		return fmt.Sprintf("%s%d%s%s%s", BULK, len(v.Blk), EOD, v.Blk, EOD)
	case ERROR:
		return fmt.Sprintf("%s%s%s", ERROR, v.Err, EOD)
	case INTEGER:
		return fmt.Sprintf("%s%d%s", INTEGER, v.Num, EOD)
	case NULL:
		if v.NullArray {
			return fmt.Sprintf("*-1%s", EOD)
		}
		return fmt.Sprintf("$-1%s", EOD)
	default:
		return fmt.Sprintf("-ERR unknown reply type%s", EOD)
	}
}

func (w *Writer) Write(v *Value) {
	w.writer.WriteString(Serialize(v))
}

func (w *Writer) Flush() error {
	return w.writer.Flush()
}

// RawEXECFrame is a synthetic EXEC frame the propagation engine appends
// straight to the replication backlog when the server's role flips from
// primary to replica mid-drain.
func RawEXECFrame() []byte {
	return []byte("*1\r\n$4\r\nEXEC\r\n")
}

// RawMULTIFrame is the pre-encoded form of the MULTI frame that opens a
// propagated batch. The engine opens batches through Sink.PropagateCommand
// with argv ["MULTI"], which encodes to the same bytes; nothing in this
// repository calls RawMULTIFrame.
func RawMULTIFrame() []byte {
	return []byte("*1\r\n$5\r\nMULTI\r\n")
}
