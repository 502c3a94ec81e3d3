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

package fake

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	timestreamtypes "github.com/aws/aws-sdk-go-v2/service/timestreamwrite/types"
	"github.com/samber/lo"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
)

// TimestreamWriteBehavior must be reset between tests otherwise tests will
// pollute each other.
type TimestreamWriteBehavior struct {
	WriteRecordsBehavior MockedFunction[timestreamwrite.WriteRecordsInput, timestreamwrite.WriteRecordsOutput]
}

type TimestreamWriteAPI struct {
	sdk.TimestreamWriteAPI
	TimestreamWriteBehavior
}

func NewTimestreamWriteAPI() *TimestreamWriteAPI {
	return &TimestreamWriteAPI{}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (t *TimestreamWriteAPI) Reset() {
	t.WriteRecordsBehavior.Reset()
}

func (t *TimestreamWriteAPI) WriteRecords(_ context.Context, input *timestreamwrite.WriteRecordsInput, _ ...func(*timestreamwrite.Options)) (*timestreamwrite.WriteRecordsOutput, error) {
	return t.WriteRecordsBehavior.Invoke(input, func(input *timestreamwrite.WriteRecordsInput) (*timestreamwrite.WriteRecordsOutput, error) {
		return &timestreamwrite.WriteRecordsOutput{
			RecordsIngested: &timestreamtypes.RecordsIngested{Total: int32(len(input.Records))},
		}, nil
	})
}

// MeasureNames returns every measure name written so far
func (t *TimestreamWriteAPI) MeasureNames() []string {
	var names []string
	t.WriteRecordsBehavior.CalledWithInput.ForEach(func(input *timestreamwrite.WriteRecordsInput) {
		names = append(names, lo.Map(input.Records, func(r timestreamtypes.Record, _ int) string { return lo.FromPtr(r.MeasureName) })...)
	})
	return names
}
