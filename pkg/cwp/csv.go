/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cwp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/samber/lo"
)

// UniqueColumnValues returns the distinct values of a zero-indexed column in first-seen order.
// Rows too short to have the column are skipped.
func UniqueColumnValues(r io.Reader, column int) ([]string, error) {
	if column < 0 {
		return nil, fmt.Errorf("column must be non-negative, got %d", column)
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	var values []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv, %w", err)
		}
		if len(record) <= column {
			continue
		}
		values = append(values, record[column])
	}
	return lo.Uniq(values), nil
}
