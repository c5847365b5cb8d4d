package workouts_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/2beens/tricoach/internal/training"
	"github.com/2beens/tricoach/internal/training/workouts"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImporter_Import_TrainingLogLayout(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMockworkoutStore(ctrl)

	csvLog := `Date,Sport,Duration,Intensity
2024-03-01,Run,45,6
2024-03-02,Run,abc,5

2024-03-03,Rowing,30,4
2024-03-04,Bike,90,5
`

	var appended []training.Row
	storeMock.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, row training.Row) (training.Row, error) {
			appended = append(appended, row)
			row.Seq = len(appended)
			return row, nil
		}).
		Times(2)

	importer := workouts.NewImporter(storeMock, training.DefaultEFScaling(), 0, false)
	result, err := importer.Import(context.Background(), strings.NewReader(csvLog))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "2024-03-02", result.Skipped[0].Date)
	assert.Equal(t, "2024-03-03", result.Skipped[1].Date)

	require.Len(t, appended, 2)
	assert.Equal(t, "Run", appended[0].Sport)
	assert.Equal(t, "270", appended[0].Load)
	assert.Equal(t, "Bike", appended[1].Sport)
	assert.Equal(t, "450", appended[1].Load)
}

func TestImporter_Import_AdaptationLabLayout(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMockworkoutStore(ctrl)

	csvLog := `Date,Discipline,Type,EF,Decoupling
2024-03-04,Bike,Steady State (Z2),1.42,3.1
2024-03-06,Run,Pure Aerobic (Recovery),1.10,2
`

	var appended []training.Row
	storeMock.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, row training.Row) (training.Row, error) {
			appended = append(appended, row)
			return row, nil
		}).
		Times(2)

	importer := workouts.NewImporter(storeMock, training.DefaultEFScaling(), 0, false)
	result, err := importer.Import(context.Background(), strings.NewReader(csvLog))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Skipped)
	assert.NotNil(t, result.Skipped)
	require.Len(t, appended, 2)
	assert.Equal(t, string(training.CategorySteadyState), appended[0].Type)
	assert.Equal(t, "3.1", appended[0].Decoupling)
	assert.Equal(t, string(training.CategoryRecovery), appended[1].Type)

	// neither row carries heart rate or output, so both logged EFs are gone
	require.Len(t, result.EFDropped, 2)
	assert.Equal(t, 1, result.EFDropped[0].Seq)
	assert.Equal(t, "1.42", result.EFDropped[0].StoredEF)
	assert.NotEmpty(t, result.EFDropped[0].Reason)
	assert.Equal(t, "2024-03-06", result.EFDropped[1].Date)
}

func TestImporter_Import_AdaptationLabSessionTypes(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMockworkoutStore(ctrl)

	csvLog := `Date,Discipline,Type,EF,Decoupling
2024-05-01,Swim,Steady State (Z2),1.1,2
2024-05-02,Swim,Tempo/Sweet Spot,1.2,3
2024-05-03,Swim,Intervals,1.3,4
2024-05-04,Bike,Steady State (Z2),1.4,2
2024-05-05,Bike,Tempo/Sweet Spot,1.5,3
2024-05-06,Bike,Intervals,1.6,6
2024-05-07,Run,Steady State (Z2),0.0238,4
2024-05-08,Run,Tempo/Sweet Spot,0.0241,5
2024-05-09,Run,Intervals,0.0250,7
`

	var appended []training.Row
	storeMock.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, row training.Row) (training.Row, error) {
			appended = append(appended, row)
			return row, nil
		}).
		Times(9)

	importer := workouts.NewImporter(storeMock, training.DefaultEFScaling(), 0, false)
	result, err := importer.Import(context.Background(), strings.NewReader(csvLog))
	require.NoError(t, err)

	assert.Equal(t, 9, result.Imported)
	assert.Empty(t, result.Skipped)
	require.Len(t, appended, 9)
	assert.Equal(t, "Swim", appended[1].Sport)
	assert.Equal(t, string(training.CategoryTempo), appended[1].Type)
	assert.Equal(t, string(training.CategoryIntervals), appended[8].Type)
	assert.Len(t, result.EFDropped, 9)
}

func TestImporter_Import_DerivableEFIsNotReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMockworkoutStore(ctrl)
	storeMock.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	csvLog := `Date,Sport,Type,Duration,Intensity,Avg HR,Avg Power,EF
2024-03-04,Bike,Steady State (Z2),60,6,140,200,9.99
2024-03-05,Run,Steady State (Z2),45,5,,,0.0238
`
	importer := workouts.NewImporter(storeMock, training.DefaultEFScaling(), 0, true)
	result, err := importer.Import(context.Background(), strings.NewReader(csvLog))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.EFDropped, 1)
	assert.Equal(t, 2, result.EFDropped[0].Seq)
	assert.Equal(t, "0.0238", result.EFDropped[0].StoredEF)
}

func TestImporter_Import_DryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMockworkoutStore(ctrl)
	storeMock.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	importer := workouts.NewImporter(storeMock, training.DefaultEFScaling(), 0, true)
	result, err := importer.Import(context.Background(), strings.NewReader("2024-03-01,Run,,45,,6\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
}

func TestImporter_Import_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMockworkoutStore(ctrl)

	gomock.InOrder(
		storeMock.EXPECT().
			Append(gomock.Any(), gomock.Any()).
			Return(training.Row{}, errors.New("connection reset")),
		storeMock.EXPECT().
			Append(gomock.Any(), gomock.Any()).
			Return(training.Row{Seq: 1}, nil),
		storeMock.EXPECT().
			Append(gomock.Any(), gomock.Any()).
			Return(training.Row{}, errors.New("connection reset")).
			Times(2),
	)

	csvLog := "Date,Sport,Duration,Intensity\n2024-03-01,Run,45,6\n2024-03-02,Run,30,3\n"
	importer := workouts.NewImporter(storeMock, training.DefaultEFScaling(), 1, false)
	result, err := importer.Import(context.Background(), strings.NewReader(csvLog))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append row 2 (2024-03-02)")
	assert.Equal(t, 1, result.Imported)
}

func TestImporter_Import_BrokenCSV(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMockworkoutStore(ctrl)

	importer := workouts.NewImporter(storeMock, training.DefaultEFScaling(), 0, false)
	_, err := importer.Import(context.Background(), strings.NewReader("Date,Sport\n\"2024-03-01,Run\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read csv")
}
