package matrix

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// maxCells guards against corrupt headers requesting absurd allocations.
const maxCells = 1 << 28

// ReadBinary decodes the binary matrix format: two little-endian int32
// values (rows, cols) followed by rows*cols float64 values in column-major
// order.
func ReadBinary(r io.Reader) (*Matrix, error) {
	br := bufio.NewReader(r)
	var header [2]int32
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read matrix header: %w", err)
	}
	rows, cols := int(header[0]), int(header[1])
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid matrix header %dx%d", rows, cols)
	}
	if rows*cols > maxCells {
		return nil, fmt.Errorf("matrix %dx%d exceeds size limit", rows, cols)
	}
	data := make([]float64, rows*cols)
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("matrix %dx%d truncated: %w", rows, cols, io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("read matrix values: %w", err)
	}
	return FromColumnMajor(rows, cols, data)
}

// WriteBinary encodes m in the format read by ReadBinary.
func WriteBinary(w io.Writer, m *Matrix) error {
	rows, cols := m.Dims()
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, [2]int32{int32(rows), int32(cols)}); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, m.ColumnMajor()); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadCSV decodes a headerless numeric CSV matrix, one row per record.
func ReadCSV(r io.Reader) (*Matrix, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, len(records))
	for i, rec := range records {
		rows[i] = make([]float64, len(rec))
		for j, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("matrix cell (%d,%d): %w", i, j, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("matrix cell (%d,%d) is not finite", i, j)
			}
			rows[i][j] = v
		}
	}
	return FromRows(rows)
}

// ReadDQICSV decodes a headerless CSV grid of data-quality cells.
func ReadDQICSV(r io.Reader) (*DQI, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		for j := range rec {
			rec[j] = strings.TrimSpace(rec[j])
		}
	}
	return NewDQI(records)
}

func readRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}
