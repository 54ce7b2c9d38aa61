package jar

import (
	"errors"
	"math/big"
	"testing"

	"jarvault/core/events"
	"jarvault/crypto"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	st := newMockState()
	r := NewRegistry(st)
	emitter := &events.CollectEmitter{}
	r.SetEmitter(emitter)

	if err := r.Register(fixedProduct("fixed", 100*MsInDay, 12)); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := r.Get("fixed")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "fixed" || !got.Enabled {
		t.Fatalf("product = %+v", got)
	}
	if len(emitter.Events) != 1 || emitter.Events[0].EventType() != events.TypeProductRegistered {
		t.Fatalf("events = %+v", emitter.Events)
	}

	if err := r.Register(fixedProduct("fixed", 100*MsInDay, 12)); !errors.Is(err, ErrProductExists) {
		t.Fatalf("duplicate register err = %v, want ErrProductExists", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(newMockState())
	if _, err := r.Get("nope"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry(newMockState())

	cases := []struct {
		name    string
		product *Product
	}{
		{"nil product", nil},
		{"empty id", &Product{ID: "  ", Terms: FlexibleTerms{}, Cap: Cap{Min: big.NewInt(1), Max: big.NewInt(2)}}},
		{"missing terms", &Product{ID: "x", Cap: Cap{Min: big.NewInt(1), Max: big.NewInt(2)}}},
		{"inverted cap", &Product{ID: "x", Terms: FlexibleTerms{}, Cap: Cap{Min: big.NewInt(5), Max: big.NewInt(2)}}},
		{"negative cap", &Product{ID: "x", Terms: FlexibleTerms{}, Cap: Cap{Min: big.NewInt(-1), Max: big.NewInt(2)}}},
		{"score based without key", &Product{ID: "x", Terms: ScoreBasedTerms{ScoreCap: 10, LockupTerm: MsInDay}, Cap: Cap{Min: big.NewInt(1), Max: big.NewInt(2)}}},
		{
			"fixed fee above min deposit",
			&Product{
				ID:            "x",
				Terms:         FlexibleTerms{},
				Cap:           Cap{Min: big.NewInt(100), Max: big.NewInt(1000)},
				WithdrawalFee: &Fee{Kind: FeeFixed, Amount: big.NewInt(100)},
			},
		},
		{
			"percent fee above 100",
			&Product{
				ID:            "x",
				Terms:         FlexibleTerms{},
				Cap:           Cap{Min: big.NewInt(1), Max: big.NewInt(1000)},
				WithdrawalFee: &Fee{Kind: FeePercent, Rate: percent(150)},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := r.Register(tc.product); !errors.Is(err, ErrInvalidProduct) {
				t.Fatalf("err = %v, want ErrInvalidProduct", err)
			}
		})
	}
}

func TestRegistryTrimsID(t *testing.T) {
	st := newMockState()
	r := NewRegistry(st)
	p := fixedProduct("  padded  ", 100*MsInDay, 12)
	if err := r.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Get("padded"); err != nil {
		t.Fatalf("trimmed lookup: %v", err)
	}
}

func TestRegistrySetEnabled(t *testing.T) {
	st := newMockState()
	r := NewRegistry(st)
	if err := r.Register(fixedProduct("fixed", 100*MsInDay, 12)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.SetEnabled("fixed", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, _ := r.Get("fixed")
	if got.Enabled {
		t.Fatal("product still enabled")
	}
	if err := r.SetEnabled("nope", true); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

func TestRegistrySetPublicKey(t *testing.T) {
	st := newMockState()
	r := NewRegistry(st)
	if err := r.Register(fixedProduct("fixed", 100*MsInDay, 12)); err != nil {
		t.Fatalf("register: %v", err)
	}
	priv, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if err := r.SetPublicKey("fixed", priv.PubKey().Bytes()); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	got, _ := r.Get("fixed")
	if !got.RequiresAuthorization() {
		t.Fatal("rotated product should require authorization")
	}
	if err := r.SetPublicKey("fixed", []byte{1, 2, 3}); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("short key err = %v, want ErrInvalidProduct", err)
	}
}

func TestRegistryList(t *testing.T) {
	st := newMockState()
	r := NewRegistry(st)
	if err := r.Register(fixedProduct("a", 100*MsInDay, 12)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(flexibleProduct("b", 7)); err != nil {
		t.Fatalf("register: %v", err)
	}
	all, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
}
