package service

import (
	"sync"
	"testing"

	"treevut/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"total": 10}`,
			want:    `{"total": 10}`,
		},
		{
			name:    "fenced object",
			content: "```json\n{\"total\": 10}\n```",
			want:    `{"total": 10}`,
		},
		{
			name:    "object with commentary",
			content: "Aquí está el resultado:\n{\"total\": 10}\nEspero que ayude.",
			want:    `{"total": 10}`,
		},
		{
			name:    "array before object text",
			content: `[{"product_name": "pan"}]`,
			want:    `[{"product_name": "pan"}]`,
		},
		{
			name:    "no json at all",
			content: "no pude procesar la imagen",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnrichExpense(t *testing.T) {
	svc := &ExtractionService{}
	total := 118.0
	truth := true
	falsehood := false

	t.Run("nil total yields nothing", func(t *testing.T) {
		assert.Nil(t, svc.enrichExpense(&rawExpense{MerchantName: "Tottus"}, "Desconocido"))
		assert.Nil(t, svc.enrichExpense(nil, "Desconocido"))
	})

	t.Run("valid ruc plus formal flag makes formal", func(t *testing.T) {
		data := svc.enrichExpense(&rawExpense{
			MerchantName: "Tottus", TaxID: "20508565934", Date: "2026-03-11",
			Total: &total, Category: "Alimentación", ReceiptType: "Boleta de Venta Electrónica",
			IsFormal: &truth,
		}, "Desconocido")
		require.NotNil(t, data)
		assert.True(t, data.IsFormal)
		assert.InDelta(t, 18.0, data.ConsumptionTax, 1e-9)
		assert.Equal(t, 0.0, data.LostSavings)
	})

	t.Run("invalid ruc is never formal", func(t *testing.T) {
		data := svc.enrichExpense(&rawExpense{
			MerchantName: "Bodega", TaxID: "12345", Total: &total,
			Category: "Alimentación", IsFormal: &truth,
		}, "Desconocido")
		require.NotNil(t, data)
		assert.False(t, data.IsFormal)
		assert.InDelta(t, 118*0.03, data.LostSavings, 1e-9)
	})

	t.Run("model formal flag can veto a valid ruc", func(t *testing.T) {
		data := svc.enrichExpense(&rawExpense{
			TaxID: "20508565934", Total: &total, Category: "Alimentación", IsFormal: &falsehood,
		}, "Desconocido")
		require.NotNil(t, data)
		assert.False(t, data.IsFormal)
	})

	t.Run("missing flag defaults to trusting the ruc", func(t *testing.T) {
		data := svc.enrichExpense(&rawExpense{
			TaxID: "20508565934", Total: &total, Category: "Alimentación",
		}, "Desconocido")
		require.NotNil(t, data)
		assert.True(t, data.IsFormal)
	})

	t.Run("unknown enums collapse to other", func(t *testing.T) {
		data := svc.enrichExpense(&rawExpense{
			Total: &total, Category: "Criptomonedas", ReceiptType: "Papiro",
		}, "Desconocido")
		require.NotNil(t, data)
		assert.Equal(t, models.CategoryOther, data.Category)
		assert.Equal(t, models.ReceiptOther, data.ReceiptType)
	})

	t.Run("blank fields get defaults", func(t *testing.T) {
		data := svc.enrichExpense(&rawExpense{Total: &total}, "Gasto por voz")
		require.NotNil(t, data)
		assert.Equal(t, "Gasto por voz", data.MerchantName)
		assert.Equal(t, "N/A", data.TaxID)
		assert.NotEmpty(t, data.Date)
	})
}

func TestTokenRefreshIsSafeUnderConcurrency(t *testing.T) {
	svc := &ExtractionService{accessToken: "initial"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n%2 == 0 {
					svc.setToken("refreshed")
				} else {
					_ = svc.token()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "refreshed", svc.token())
}

func TestRucPattern(t *testing.T) {
	assert.True(t, rucPattern.MatchString("20508565934"))
	assert.False(t, rucPattern.MatchString("2050856593"))   // 10 digits
	assert.False(t, rucPattern.MatchString("205085659341")) // 12 digits
	assert.False(t, rucPattern.MatchString("20508A65934"))
	assert.False(t, rucPattern.MatchString(""))
}
