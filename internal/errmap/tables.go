package errmap

// Vendor tables. Codes are vendor-local: the same number means different things on different
// devices, so a table is never consulted for another vendor's code.

var elzabCodes = table{
	"1":  {msg: "Błąd składni rozkazu"},
	"2":  {msg: "Brak papieru"},
	"3":  {msg: "Awaria mechanizmu drukującego"},
	"4":  {msg: "Błąd komunikacji"},
	"5":  {msg: "Błąd pamięci fiskalnej"},
	"6":  {msg: "Przepełnienie bufora"},
	"7":  {msg: "Nieprawidłowa cena lub ilość"},
	"8":  {msg: "Przekroczona liczba pozycji na paragonie"},
	"9":  {msg: "Nieobsługiwana stawka VAT"},
	"10": {msg: "Nieprawidłowy NIP nabywcy"},
	"11": {msg: "Przekroczony dobowy limit sprzedaży"},
	"12": {msg: "Wymagany raport dobowy"},
	"13": {msg: "Drukarka w niewłaściwym trybie fiskalnym"},
	"14": {msg: "Błąd zegara"},
	"15": {msg: "Błąd sieci"},
	"16": {msg: "Błąd autoryzacji"},
	"17": {msg: "Dokument został już anulowany", kind: KindAlreadyVoided},
	"18": {msg: "Nie znaleziono dokumentu", kind: KindNotFound},
}

var novitusCodes = table{
	"1":  {msg: "Błąd zegara RTC"},
	"2":  {msg: "Błąd sumy kontrolnej transmisji"},
	"3":  {msg: "Błąd składni rozkazu"},
	"4":  {msg: "Błąd pamięci fiskalnej"},
	"5":  {msg: "Brak papieru"},
	"6":  {msg: "Awaria mechanizmu drukującego"},
	"7":  {msg: "Nieprawidłowa cena"},
	"8":  {msg: "Nieprawidłowa ilość"},
	"9":  {msg: "Przepełnienie bufora wydruku"},
	"10": {msg: "Przekroczona maksymalna liczba pozycji"},
	"11": {msg: "Stawka VAT niezdefiniowana"},
	"12": {msg: "Nieprawidłowy NIP nabywcy"},
	"13": {msg: "Przekroczony limit sprzedaży dobowej"},
	"14": {msg: "Nieprawidłowy numer karty"},
	"15": {msg: "Wymagany raport dobowy"},
	"16": {msg: "Drukarka w trybie tylko do odczytu"},
	"17": {msg: "Błąd połączenia z siecią"},
	"18": {msg: "Błąd autoryzacji"},
	"19": {msg: "Dokument został już anulowany", kind: KindAlreadyVoided},
	"20": {msg: "Nie znaleziono dokumentu", kind: KindNotFound},
}

var posnetCodes = table{
	"1":   {msg: "Nierozpoznany rozkaz"},
	"2":   {msg: "Brak obowiązkowego parametru"},
	"3":   {msg: "Błąd formatu pola"},
	"100": {msg: "Brak papieru"},
	"101": {msg: "Awaria mechanizmu drukującego"},
	"102": {msg: "Błąd komunikacji z mechanizmem"},
	"200": {msg: "Błąd pamięci fiskalnej"},
	"201": {msg: "Przepełnienie bufora"},
	"300": {msg: "Nieprawidłowa cena"},
	"301": {msg: "Nieprawidłowa ilość"},
	"302": {msg: "Przekroczona liczba pozycji"},
	"303": {msg: "Nieobsługiwana stawka VAT"},
	"304": {msg: "Nieprawidłowy NIP nabywcy"},
	"305": {msg: "Przekroczony dobowy limit sprzedaży"},
	"400": {msg: "Wymagany raport dobowy"},
	"401": {msg: "Drukarka nie jest w trybie fiskalnym"},
	"402": {msg: "Błąd zegara"},
	"500": {msg: "Błąd sieci"},
	"501": {msg: "Błąd autoryzacji"},
	"600": {msg: "Dokument został już wystornowany", kind: KindAlreadyVoided},
	"601": {msg: "Nie znaleziono dokumentu", kind: KindNotFound},
}

var ingenicoCodes = table{
	"E01": {msg: "Błąd składni komunikatu"},
	"E02": {msg: "Brak papieru w terminalu"},
	"E03": {msg: "Awaria czytnika kart"},
	"E04": {msg: "Błąd komunikacji z terminalem"},
	"E05": {msg: "Błąd pamięci terminala"},
	"E06": {msg: "Przepełnienie bufora"},
	"E07": {msg: "Nieprawidłowa kwota"},
	"E08": {msg: "Przekroczona liczba transakcji w partii"},
	"E09": {msg: "Przekroczony limit dzienny"},
	"E10": {msg: "Wymagane zamknięcie partii"},
	"E11": {msg: "Terminal w niewłaściwym trybie"},
	"E12": {msg: "Błąd zegara terminala"},
	"E13": {msg: "Brak połączenia z centrum autoryzacji"},
	"E14": {msg: "Błąd autoryzacji terminala"},
	"E15": {msg: "Transakcja została już anulowana", kind: KindAlreadyVoided},
	"E16": {msg: "Nie znaleziono transakcji", kind: KindNotFound},
	"E17": {msg: "Transakcja przerwana"},
}

var verifoneCodes = table{
	"SYNTAX_ERROR":        {msg: "Błąd składni komunikatu"},
	"NO_PAPER":            {msg: "Brak papieru w terminalu"},
	"PRINTER_FAULT":       {msg: "Awaria drukarki terminala"},
	"COMM_ERROR":          {msg: "Błąd komunikacji z terminalem"},
	"MEMORY_ERROR":        {msg: "Błąd pamięci terminala"},
	"BUFFER_OVERFLOW":     {msg: "Przepełnienie bufora"},
	"INVALID_AMOUNT":      {msg: "Nieprawidłowa kwota"},
	"BATCH_FULL":          {msg: "Przekroczona liczba transakcji w partii"},
	"LIMIT_EXCEEDED":      {msg: "Przekroczony limit dzienny"},
	"SETTLEMENT_REQUIRED": {msg: "Wymagane zamknięcie partii"},
	"WRONG_MODE":          {msg: "Terminal w niewłaściwym trybie"},
	"CLOCK_ERROR":         {msg: "Błąd zegara terminala"},
	"HOST_UNREACHABLE":    {msg: "Brak połączenia z centrum autoryzacji"},
	"AUTH_FAILED":         {msg: "Błąd autoryzacji terminala"},
	"ALREADY_VOIDED":      {msg: "Transakcja została już anulowana", kind: KindAlreadyVoided},
	"TXN_NOT_FOUND":       {msg: "Nie znaleziono transakcji", kind: KindNotFound},
	"CANCELLED":           {msg: "Transakcja przerwana"},
}

// issuerCodes are the ISO 8583 response codes returned by card issuers. Both terminal
// vendors pass them through unchanged.
var issuerCodes = table{
	"01": {msg: "Skontaktuj się z wydawcą karty", kind: KindDecline},
	"03": {msg: "Nieprawidłowy akceptant", kind: KindDecline},
	"04": {msg: "Zatrzymaj kartę", kind: KindDecline},
	"05": {msg: "Transakcja odrzucona przez wydawcę", kind: KindDecline},
	"12": {msg: "Nieprawidłowa transakcja", kind: KindDecline},
	"13": {msg: "Nieprawidłowa kwota", kind: KindDecline},
	"14": {msg: "Nieprawidłowy numer karty", kind: KindDecline},
	"15": {msg: "Nieznany wydawca karty", kind: KindDecline},
	"30": {msg: "Błąd formatu komunikatu", kind: KindDecline},
	"41": {msg: "Karta zgłoszona jako zgubiona", kind: KindDecline},
	"43": {msg: "Karta zgłoszona jako skradziona", kind: KindDecline},
	"51": {msg: "Brak wystarczających środków", kind: KindDecline},
	"54": {msg: "Karta utraciła ważność", kind: KindDecline},
	"55": {msg: "Nieprawidłowy PIN", kind: KindDecline},
	"57": {msg: "Transakcja niedozwolona dla posiadacza karty", kind: KindDecline},
	"58": {msg: "Transakcja niedozwolona dla terminala", kind: KindDecline},
	"61": {msg: "Przekroczony limit kwotowy", kind: KindDecline},
	"62": {msg: "Karta zastrzeżona", kind: KindDecline},
	"65": {msg: "Przekroczony limit liczby transakcji", kind: KindDecline},
	"75": {msg: "Przekroczona liczba prób wprowadzenia PIN", kind: KindDecline},
	"91": {msg: "Wydawca karty niedostępny", kind: KindDecline},
	"94": {msg: "Zduplikowana transakcja", kind: KindDecline},
	"96": {msg: "Awaria systemu autoryzacji", kind: KindDecline},
}
