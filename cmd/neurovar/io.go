package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"neurovar/tensor"
	"neurovar/varmodel"
)

// LoadCSVTrial loads one trial from a CSV file into a channels x samples
// matrix. Each column is a channel (named by the header row), each data row
// one time sample.
func LoadCSVTrial(path string) (*mat.Dense, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("empty header in %s", path)
	}
	m := len(header)

	var data []float64
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", row+2, err)
		}
		if len(record) == 1 && record[0] == "" {
			continue
		}
		if len(record) != m {
			return nil, nil, fmt.Errorf("row %d: expected %d columns, got %d", row+2, m, len(record))
		}
		for j, s := range record {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("parse float at row %d col %d (%q): %w", row+2, j+1, s, err)
			}
			data = append(data, v)
		}
		row++
	}
	if row == 0 {
		return nil, nil, fmt.Errorf("no data rows in %s", path)
	}

	// CSV is sample-major; the trial matrix is channel-major.
	y := mat.NewDense(m, row, nil)
	for t := 0; t < row; t++ {
		for j := 0; j < m; j++ {
			y.Set(j, t, data[t*m+j])
		}
	}
	return y, header, nil
}

// PrintCoefficients writes the per-lag coefficient blocks and the residual
// covariance to stdout.
func PrintCoefficients(coef *mat.Dense, rescov *mat.SymDense, p int) {
	for k := 1; k <= p; k++ {
		fmt.Printf("\n=== A_%d ===\n", k)
		fmt.Printf("%v\n", mat.Formatted(varmodel.LagBlock(coef, k), mat.Prefix(" ")))
	}
	fmt.Println("\n=== Residual Covariance ===")
	fmt.Printf("%v\n", mat.Formatted(rescov, mat.Prefix(" ")))
}

// loadTrials reads each path as one trial of the same recording, fetching
// the files concurrently.
func loadTrials(paths []string) (*tensor.Tensor, []string, error) {
	trials := make([]*mat.Dense, len(paths))
	headers := make([][]string, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			y, header, err := LoadCSVTrial(path)
			if err != nil {
				return err
			}
			trials[i] = y
			headers[i] = header
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	for i := 1; i < len(headers); i++ {
		if !slices.Equal(headers[i], headers[0]) {
			return nil, nil, fmt.Errorf("%s: channel names %v do not match %s (%v)",
				paths[i], headers[i], paths[0], headers[0])
		}
	}

	x, err := tensor.FromTrials(trials...)
	if err != nil {
		return nil, nil, err
	}
	return x, headers[0], nil
}
