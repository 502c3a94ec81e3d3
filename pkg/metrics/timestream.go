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

package metrics

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	timestreamtypes "github.com/aws/aws-sdk-go-v2/service/timestreamwrite/types"
	"k8s.io/utils/clock"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
)

type Client interface {
	FireMetric(context.Context, string, float64, string) error
}

// TimeStream writes one record per metric to a Timestream table, dimensioned by region
type TimeStream struct {
	timestreamwriteapi sdk.TimestreamWriteAPI
	clock              clock.Clock
	database           string
	table              string
}

func NewTimeStream(timestreamwriteapi sdk.TimestreamWriteAPI, clk clock.Clock, database, table string) *TimeStream {
	return &TimeStream{
		timestreamwriteapi: timestreamwriteapi,
		clock:              clk,
		database:           database,
		table:              table,
	}
}

func (t *TimeStream) FireMetric(ctx context.Context, name string, value float64, region string) error {
	if _, err := t.timestreamwriteapi.WriteRecords(ctx, &timestreamwrite.WriteRecordsInput{
		DatabaseName: aws.String(t.database),
		TableName:    aws.String(t.table),
		Records: []timestreamtypes.Record{
			{
				MeasureName:      aws.String(name),
				MeasureValue:     aws.String(fmt.Sprintf("%f", value)),
				MeasureValueType: timestreamtypes.MeasureValueTypeDouble,
				Time:             aws.String(fmt.Sprintf("%d", t.clock.Now().UnixMilli())),
				TimeUnit:         timestreamtypes.TimeUnitMilliseconds,
				Dimensions: []timestreamtypes.Dimension{
					{
						Name:  aws.String("region"),
						Value: aws.String(region),
					},
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("writing metric %q to %s.%s, %w", name, t.database, t.table, err)
	}
	return nil
}

func WithRegion(region string) func(*timestreamwrite.Options) {
	return func(o *timestreamwrite.Options) {
		o.Region = region
	}
}
